package zod

// stringFormats maps an OpenAPI string format onto the chained check.
// Formats missing from the table leave the expression unchanged.
var stringFormats = map[string]string{
	"email":     ".email()",
	"uuid":      ".uuid()",
	"uri":       ".url()",
	"url":       ".url()",
	"date-time": ".datetime()",
	"date":      ".date()",
	"time":      ".time()",
	"duration":  ".duration()",
	"ipv4":      `.ip({ version: "v4" })`,
	"ipv6":      `.ip({ version: "v6" })`,
	"emoji":     ".emoji()",
	"cuid":      ".cuid()",
	"cuid2":     ".cuid2()",
	"ulid":      ".ulid()",
	"nanoid":    ".nanoid()",
	"base64":    ".base64()",
	"byte":      ".base64()",
}

// blobFormats compile to a Blob instance check instead of a string.
var blobFormats = map[string]bool{
	"binary": true,
}
