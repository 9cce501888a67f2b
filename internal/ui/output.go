// Package ui provides colored console output for the CLI.
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

const headerWidth = 60

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	infoColor    = color.New(color.FgWhite)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	blueColor    = color.New(color.FgBlue)
	yellowColor  = color.New(color.FgYellow)
)

// center pads text on the left so it sits in the middle of width columns.
// Text wider than width is returned unchanged.
func center(text string, width int) string {
	if len(text) >= width {
		return text
	}
	return strings.Repeat(" ", (width-len(text))/2) + text
}

// Header prints a banner with the text centered between rule lines.
func Header(text string) {
	line := strings.Repeat("=", headerWidth)
	headerColor.Println(line)
	headerColor.Println(center(text, headerWidth))
	headerColor.Println(line)
}

// Step prints a numbered progress step.
func Step(current, total int, text string) {
	blueColor.Printf("[%d/%d] ", current, total)
	fmt.Println(text)
}

// Success prints a green success line.
func Success(format string, args ...interface{}) {
	successColor.Printf("✓ "+format+"\n", args...)
}

// Info prints a plain informational line.
func Info(format string, args ...interface{}) {
	infoColor.Printf(format+"\n", args...)
}

// Warning prints a yellow warning line.
func Warning(format string, args ...interface{}) {
	warnColor.Printf("! "+format+"\n", args...)
}

// Error prints a red error line.
func Error(format string, args ...interface{}) {
	errorColor.Printf("✗ "+format+"\n", args...)
}

// BlueText prints text in blue.
func BlueText(format string, args ...interface{}) {
	blueColor.Printf(format+"\n", args...)
}

// YellowText prints text in yellow.
func YellowText(format string, args ...interface{}) {
	yellowColor.Printf(format+"\n", args...)
}
