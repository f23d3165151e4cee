package htmlutil

import (
	"github.com/k3a/html2text"
)

// ToText strips any HTML the language model sneaks into a narrative,
// resolving entities and keeping the readable text.
func ToText(s string) string {
	return html2text.HTML2Text(s)
}
