package model

import (
	"regexp"
	"strings"
)

var (
	dataBlock    = regexp.MustCompile(`(?m)^\s*data\s*\{`)
	lineComment  = regexp.MustCompile(`//[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
)

// DataFields returns the names declared in the program's data block, in
// declaration order. The rest of the program text is not interpreted.
func (p Program) DataFields() []string {
	return ParseDataFields(p.Source)
}

// ParseDataFields extracts the declared names of a Stan data block.
func ParseDataFields(source string) []string {
	src := blockComment.ReplaceAllString(source, "")
	src = lineComment.ReplaceAllString(src, "")

	loc := dataBlock.FindStringIndex(src)
	if loc == nil {
		return nil
	}
	body, ok := braceBody(src[loc[1]:])
	if !ok {
		return nil
	}

	// data宣言は "型 名前;" の形なので、各文の最後のトークンが名前になる
	var names []string
	for _, stmt := range strings.Split(body, ";") {
		fields := strings.Fields(stmt)
		if len(fields) < 2 {
			continue
		}
		names = append(names, fields[len(fields)-1])
	}
	return names
}

// braceBody returns the text up to the brace closing an already opened block.
func braceBody(s string) (string, bool) {
	depth := 1
	for i, c := range s {
		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[:i], true
			}
		}
	}
	return "", false
}
