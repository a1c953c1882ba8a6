package sim

import (
	"strconv"
	"strings"
)

// NameMustBeValid panics if the name does not follow the naming convention.
// A name is a dot-separated hierarchy such as "Camera.Byrp[0]". Every element
// must be non-empty, start with a capital letter and must not contain '_',
// '-' or quotes. Elements in a series use a single square-bracket index.
func NameMustBeValid(name string) {
	for _, token := range strings.Split(name, ".") {
		if err := tokenProblem(token); err != "" {
			panic("Name " + name + " is not valid: " + err)
		}
	}
}

func tokenProblem(token string) string {
	elem := token

	if open := strings.IndexByte(token, '['); open >= 0 {
		if !strings.HasSuffix(token, "]") {
			return "Name bracket must match"
		}

		if _, err := strconv.Atoi(token[open+1 : len(token)-1]); err != nil {
			return "Name index must be integer"
		}

		elem = token[:open]
	} else if strings.ContainsRune(token, ']') {
		return "Name bracket must match"
	}

	if elem == "" {
		return "Name element must not be empty"
	}

	if strings.ContainsAny(elem, "_\"'-") {
		return "Name element must not contain _, - or quotes"
	}

	if elem[0] < 'A' || elem[0] > 'Z' {
		return "Name element must start with a capital letter"
	}

	return ""
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds a name from a parent name, an element name and an
// index.
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}
