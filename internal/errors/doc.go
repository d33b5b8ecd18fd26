// Package errors provides coded, actionable errors for the sprout tools.
//
// Each code (e.g. "E101") maps to a registered template with a category,
// a short message, an explanation and a documentation link. Callers add a
// suggestion and wrap the underlying cause:
//
//	err := errors.New("E101").
//	    Wrap(parseErr).
//	    WithSuggestion("Check the YAML indentation near the reported line")
//
//	errors.Print(os.Stderr, err)
//
// Codes are grouped by range:
//
//	E100-E119  configuration
//	E120-E139  transport
//	E140-E159  protocol
//	E160-E179  archive
//	E180-E199  command line
//
// Colors are enabled when stderr is a terminal and can be toggled with
// EnableColors and DisableColors.
package errors
