package template

// NodeKind discriminates the scene nodes of a template.
type NodeKind int

const (
	KindBackground NodeKind = iota
	KindText
	KindQR
)

func (k NodeKind) String() string {
	switch k {
	case KindBackground:
		return "background"
	case KindText:
		return "text"
	case KindQR:
		return "qr"
	default:
		return "unknown"
	}
}

// Node is one drawable element of a template scene.
type Node interface {
	Kind() NodeKind
}

type BackgroundNode struct{ Background *Background }

type TextNode struct{ Field TextField }

type QRNode struct{ Stamp QRField }

func (BackgroundNode) Kind() NodeKind { return KindBackground }
func (TextNode) Kind() NodeKind       { return KindText }
func (QRNode) Kind() NodeKind         { return KindQR }

// Nodes returns the scene in draw order. The background, when set, is always
// first; placeholders follow in insertion order, then stamps.
func (t Template) Nodes() []Node {
	nodes := make([]Node, 0, 1+len(t.Placeholders)+len(t.Stamps))
	if t.Background != nil {
		nodes = append(nodes, BackgroundNode{Background: t.Background})
	}
	for _, f := range t.Placeholders {
		nodes = append(nodes, TextNode{Field: f})
	}
	for _, q := range t.Stamps {
		nodes = append(nodes, QRNode{Stamp: q})
	}
	return nodes
}
