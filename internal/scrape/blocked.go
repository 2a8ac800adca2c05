package scrape

import "strings"

// BlockType describes the kind of anti-bot block detected in page content.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// DetectBlock inspects rendered page content for signs of anti-bot
// protection. A blocked page carries a challenge shell instead of the
// business content, so it must not be fed into extraction.
func DetectBlock(content string) (bool, BlockType) {
	lower := strings.ToLower(content)

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") ||
		strings.Contains(lower, "just a moment") ||
		(strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge")) {
		return true, BlockCloudflare
	}

	if strings.Contains(lower, "captcha") ||
		strings.Contains(lower, "recaptcha") ||
		strings.Contains(lower, "hcaptcha") {
		return true, BlockCaptcha
	}

	// JS-only shell: very small content asking for javascript or cookies.
	if len(content) < 2000 {
		if strings.Contains(lower, "enable javascript") ||
			strings.Contains(lower, "please enable cookies") ||
			strings.Contains(lower, "access denied") {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}
