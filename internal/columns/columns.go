// Package columns canonicalizes spreadsheet headers and guesses which
// columns carry the date, description and amount roles.
package columns

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kenralotamd/spending-tracker/internal/domain"
)

//go:embed synonyms.yaml
var embeddedSynonyms []byte

// Role identifies a semantic column role in an uploaded file.
type Role string

const (
	RoleDate        Role = "date"
	RoleDescription Role = "description"
	RoleAmount      Role = "amount"
	RoleDebit       Role = "debit"
	RoleCredit      Role = "credit"
)

// roleOrder is the claim order: a header claimed by an earlier role is not
// available to later ones. Order-dependence between competing headers is an
// accepted ambiguity, not something to resolve cleverly.
var roleOrder = []Role{RoleDate, RoleDescription, RoleAmount, RoleDebit, RoleCredit}

type synonymFile struct {
	Roles map[string][]string `yaml:"roles"`
}

var synonyms = mustLoadSynonyms()

func mustLoadSynonyms() map[Role]map[string]struct{} {
	var f synonymFile
	if err := yaml.Unmarshal(embeddedSynonyms, &f); err != nil {
		panic(fmt.Sprintf("embedded synonyms are invalid (possible binary corruption): %v", err))
	}
	out := make(map[Role]map[string]struct{}, len(roleOrder))
	for _, role := range roleOrder {
		tokens, ok := f.Roles[string(role)]
		if !ok || len(tokens) == 0 {
			panic(fmt.Sprintf("embedded synonyms missing role %q", role))
		}
		set := make(map[string]struct{}, len(tokens))
		for _, tok := range tokens {
			set[tok] = struct{}{}
		}
		out[role] = set
	}
	return out
}

// Normalize canonicalizes a raw header for matching: lower-cased, internal
// whitespace collapsed to underscores, everything outside [a-z0-9_] stripped.
// Pure and total; any input produces a (possibly empty) token.
func Normalize(header string) string {
	fields := strings.Fields(strings.ToLower(header))
	joined := strings.Join(fields, "_")

	var b strings.Builder
	b.Grow(len(joined))
	for _, r := range joined {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Guess maps raw headers onto column roles by normalized synonym lookup.
// For each role in claim order the first unclaimed header (in original
// column order) matching a synonym wins. Unmatched roles are left unset for
// the user to resolve before commit; Guess itself never fails.
func Guess(headers []string) domain.ColumnMapping {
	claimed := make(map[int]bool, len(headers))
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = Normalize(h)
	}

	var mapping domain.ColumnMapping
	for _, role := range roleOrder {
		set := synonyms[role]
		for i, token := range normalized {
			if claimed[i] {
				continue
			}
			if _, ok := set[token]; !ok {
				continue
			}
			claimed[i] = true
			switch role {
			case RoleDate:
				mapping.Date = headers[i]
			case RoleDescription:
				mapping.Description = headers[i]
			case RoleAmount:
				mapping.Amount = headers[i]
			case RoleDebit:
				mapping.Debit = headers[i]
			case RoleCredit:
				mapping.Credit = headers[i]
			}
			break
		}
	}
	return mapping
}
