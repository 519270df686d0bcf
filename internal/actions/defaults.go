package actions

import "go.klb.dev/clipone/internal/category"

var (
	allCategories = []category.Category{
		category.Text, category.URL, category.HTML, category.Image, category.Files,
	}
	textOnly   = []category.Category{category.Text}
	textAndURL = []category.Category{category.Text, category.URL}
)

// Defaults returns the action set used when the configuration declares none.
func Defaults() []Descriptor {
	return []Descriptor{
		{
			ID: BuiltinCopy, Label: "Copy to clipboard", Icon: "Copy",
			Enabled: true, Priority: Priority(1), Kind: KindBuiltin,
			Keywords:   []string{"copy", "clipboard"},
			Categories: allCategories,
		},
		{
			ID: "search", Label: "Web search", Icon: "Search",
			Enabled: true, Priority: Priority(2), Kind: KindURL,
			Command:    "https://www.google.com/search?q=CONTENT",
			Keywords:   []string{"search", "google", "web"},
			Categories: textAndURL,
		},
		{
			ID: BuiltinOpenURL, Label: "Open URL", Icon: "ExternalLink",
			Enabled: true, Priority: Priority(2), Kind: KindBuiltin,
			Keywords:   []string{"url", "open", "link"},
			Categories: []category.Category{category.URL},
		},
		{
			ID: "translate", Label: "Translate", Icon: "Languages",
			Enabled: true, Priority: Priority(3), Kind: KindURL,
			Command:    "https://translate.google.com/?text=CONTENT",
			Keywords:   []string{"translate", "language"},
			Categories: textOnly,
		},
		{
			ID: "chatgpt", Label: "Send to ChatGPT", Icon: "Bot",
			Enabled: true, Priority: Priority(4), Kind: KindURL,
			Command:    "https://chat.openai.com/?q=CONTENT",
			Keywords:   []string{"chatgpt", "ai", "gpt", "openai"},
			Categories: textOnly,
		},
		{
			ID: "claude", Label: "Send to Claude", Icon: "Brain",
			Enabled: true, Priority: Priority(5), Kind: KindURL,
			Command:    "https://claude.ai/?q=CONTENT",
			Keywords:   []string{"claude", "ai", "anthropic"},
			Categories: textOnly,
		},
		{
			ID: "summarize", Label: "Summarize", Icon: "Sparkles",
			Enabled: false, Priority: Priority(6), Kind: KindBuiltin,
			Keywords:   []string{"summarize", "summary", "ai"},
			Categories: textOnly,
		},
		{
			ID: "qr-code", Label: "QR code", Icon: "QrCode",
			Enabled: true, Priority: Priority(8), Kind: KindURL,
			Command:    "https://api.qrserver.com/v1/create-qr-code/?size=200x200&data=CONTENT",
			Keywords:   []string{"qr", "qrcode", "barcode", "code"},
			Categories: textAndURL,
		},
		{
			ID: "edit", Label: "Edit", Icon: "Edit3",
			Enabled: false, Priority: Priority(11), Kind: KindBuiltin,
			Keywords:   []string{"edit", "modify"},
			Categories: textOnly,
		},
		{
			ID: BuiltinUppercase, Label: "Uppercase", Icon: "RotateCcw",
			Enabled: true, Priority: Priority(13), Kind: KindBuiltin,
			Keywords:   []string{"uppercase", "caps", "upper"},
			Categories: textOnly,
		},
		{
			ID: BuiltinLowercase, Label: "Lowercase", Icon: "RefreshCw",
			Enabled: true, Priority: Priority(14), Kind: KindBuiltin,
			Keywords:   []string{"lowercase", "lower"},
			Categories: textOnly,
		},
		{
			ID: BuiltinStripHTML, Label: "Strip HTML", Icon: "Code",
			Enabled: true, Priority: Priority(15), Kind: KindBuiltin,
			Keywords:   []string{"html", "strip", "plain"},
			Categories: []category.Category{category.HTML},
		},
		{
			ID: "send-email", Label: "Send by email", Icon: "Mail",
			Enabled: true, Priority: Priority(21), Kind: KindURL,
			Command:    "mailto:?body=CONTENT",
			Keywords:   []string{"email", "mail", "send"},
			Categories: textOnly,
		},
		{
			ID: BuiltinBase64Encode, Label: "Base64 encode", Icon: "Lock",
			Enabled: true, Priority: Priority(27), Kind: KindBuiltin,
			Keywords:   []string{"base64", "encode"},
			Categories: textOnly,
		},
		{
			ID: BuiltinBase64Decode, Label: "Base64 decode", Icon: "Key",
			Enabled: true, Priority: Priority(28), Kind: KindBuiltin,
			Keywords:   []string{"base64", "decode"},
			Categories: textOnly,
		},
		{
			ID: BuiltinWordCount, Label: "Count words", Icon: "Hash",
			Enabled: true, Priority: Priority(42), Kind: KindBuiltin,
			Keywords:   []string{"count", "words", "characters"},
			Categories: textOnly,
		},
		{
			ID: BuiltinReverse, Label: "Reverse text", Icon: "Shuffle",
			Enabled: true, Priority: Priority(44), Kind: KindBuiltin,
			Keywords:   []string{"reverse", "flip"},
			Categories: textOnly,
		},
	}
}
