package scanner

import "strings"

// languageByExtension maps file extensions to audit languages. Extensions
// not listed are scanned but not extracted.
var languageByExtension = map[string]string{
	".r":     "r",
	".rmd":   "r",
	".qmd":   "r",
	".do":    "stata",
	".ado":   "stata",
	".py":    "python",
	".pyw":   "python",
	".ipynb": "notebook",
	".tex":   "latex",
	".sty":   "latex",
	".bbl":   "latex",
}

// DetectLanguage returns the audit language for a file extension, or the
// empty string for files no extractor handles.
func DetectLanguage(ext string) string {
	return languageByExtension[strings.ToLower(ext)]
}
