// Package report implements the error-reporting boundary. Fatal conditions
// such as an unsupported search strategy are reported here and shown to the
// user until dismissed, instead of failing every keystroke.
package report
