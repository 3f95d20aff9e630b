package naming

// reservedWords are JavaScript/TypeScript keywords, strict-mode reserved
// words and TypeScript contextual keywords that cannot name a binding.
var reservedWords = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true, "do": true,
	"else": true, "enum": true, "export": true, "extends": true, "false": true,
	"finally": true, "for": true, "function": true, "if": true, "import": true,
	"in": true, "instanceof": true, "new": true, "null": true, "return": true,
	"super": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "var": true, "void": true, "while": true,
	"with": true, "yield": true,
	// strict mode
	"implements": true, "interface": true, "let": true, "package": true,
	"private": true, "protected": true, "public": true, "static": true,
	"await": true, "arguments": true, "eval": true,
	// TypeScript type names that cannot be declared
	"any": true, "boolean": true, "never": true, "number": true, "object": true,
	"string": true, "symbol": true, "undefined": true, "unknown": true, "bigint": true,
	"type": true, "declare": true, "namespace": true, "module": true,
}

// IsReserved reports whether name cannot be used verbatim as an identifier.
// The check is case-sensitive: "Delete" is a valid identifier.
func IsReserved(name string) bool { return reservedWords[name] }
