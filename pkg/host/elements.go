package host

// voidElements cannot have children and have no closing tag.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// IsVoidElement reports whether tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[tag]
}

// inlineElements don't get newlines in pretty output.
var inlineElements = map[string]bool{
	"a": true, "abbr": true, "b": true, "br": true, "cite": true,
	"code": true, "em": true, "i": true, "kbd": true, "label": true,
	"mark": true, "q": true, "s": true, "small": true, "span": true,
	"strong": true, "sub": true, "sup": true, "time": true, "u": true,
}

func isInlineElement(tag string) bool { return inlineElements[tag] }

// booleanAttrs render as a bare name when true.
var booleanAttrs = map[string]bool{
	"autofocus": true, "checked": true, "disabled": true, "hidden": true,
	"multiple": true, "open": true, "readonly": true, "required": true,
	"selected": true,
}

func isBooleanAttr(name string) bool { return booleanAttrs[name] }
