package source

import (
	"regexp"
	"strings"
)

// DefaultExtension is appended to import paths that carry no stylesheet extension.
const DefaultExtension = ".less"

// directiveRE matches one import directive per line. The whole line, including
// anything after the terminating semicolon, belongs to the match. A "//" before
// @import prevents the match because only blanks may precede the keyword.
// The opening and closing quotes need not agree. A trailing carriage return
// is matched but left out of the directive's span.
var directiveRE = regexp.MustCompile(`(?m)^[ \t]*@import(-once)?\s+(url\()?\s*("|')(.+)\s*("|')(\))?\s*;[^\r\n]*\r?$`)

// stylesheetExtRE matches the extensions that suppress DefaultExtension inference.
var stylesheetExtRE = regexp.MustCompile(`(?i)\.(le?|c)ss$`)

// pathGroup is the submatch index of the quoted import path.
const pathGroup = 4

// directive is a located import directive within a text buffer.
type directive struct {
	start int    // byte offset of the first byte of the matched line
	end   int    // byte offset just past the match (before the line ending)
	path  string // normalized import path
	css   bool   // true when the path names a plain CSS file
}

// nextDirective returns the first directive in text starting at or after from.
// from must be the start of a line or the position of a line ending; a match
// anchored at from when from is mid-line is rejected.
func nextDirective(text string, from int) (directive, bool) {
	for from <= len(text) {
		loc := directiveRE.FindStringSubmatchIndex(text[from:])
		if loc == nil {
			return directive{}, false
		}
		if loc[0] == 0 && from > 0 && text[from-1] != '\n' {
			nl := strings.IndexByte(text[from:], '\n')
			if nl < 0 {
				return directive{}, false
			}
			from += nl + 1
			continue
		}
		p := normalizePath(text[from+loc[2*pathGroup] : from+loc[2*pathGroup+1]])
		end := from + loc[1]
		if end > from+loc[0] && text[end-1] == '\r' {
			end--
		}
		return directive{
			start: from + loc[0],
			end:   end,
			path:  p,
			css:   isCSS(p),
		}, true
	}
	return directive{}, false
}

// normalizePath appends DefaultExtension unless p already ends in .less, .lss or .css.
func normalizePath(p string) string {
	if stylesheetExtRE.MatchString(p) {
		return p
	}
	return p + DefaultExtension
}

// isCSS reports whether a normalized import path names a plain CSS file.
func isCSS(p string) bool {
	return strings.HasSuffix(strings.ToLower(p), ".css")
}
