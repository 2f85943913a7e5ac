// Package host provides the native platform tree the loom runtime renders into.
//
// A Document owns element, text and fragment nodes and a registry of element
// names. Nodes support the handful of operations reconciliation needs:
// appending (fragments move their children), inserting after a sibling,
// removal, attribute and text assignment. Every mutation is counted so tests
// can assert on batching, and an optional observer sees each one.
//
// Renderer serializes a tree to HTML with escaping, void-element and
// boolean-attribute handling:
//
//	doc := host.NewDocument()
//	div := doc.CreateElement("div")
//	div.AppendChild(doc.CreateText("hi"))
//	fmt.Println(host.RenderString(div)) // <div>hi</div>
package host
