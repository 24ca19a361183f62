package fetch

import (
	"net/http"
	"strings"
)

// BlockType describes the kind of anti-bot block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockAkamai     BlockType = "akamai"
	BlockCaptcha    BlockType = "captcha"
	BlockJSShell    BlockType = "js_shell"
)

// bodyMarkers maps challenge-page fingerprints to the block they indicate.
// Checked in order; first hit wins.
var bodyMarkers = []struct {
	marker string
	kind   BlockType
}{
	{"checking your browser", BlockCloudflare},
	{"cf-browser-verification", BlockCloudflare},
	{"errors.edgesuite.net", BlockAkamai},
	{"reference&#32;&#35;", BlockAkamai},
	{"access denied\" content=\"access denied", BlockAkamai},
	{"recaptcha", BlockCaptcha},
	{"hcaptcha", BlockCaptcha},
	{"captcha", BlockCaptcha},
}

// jsShellMaxBytes bounds how small a page must be before a noscript or
// meta-refresh marker counts as a JS-only shell rather than page chrome.
const jsShellMaxBytes = 2000

// DetectBlock checks an HTTP response for signs of anti-bot protection.
// Carrier plan pages sit behind Akamai (Verizon, AT&T) or Cloudflare; a
// challenge page would otherwise pass the non-empty check and reach the
// extractor as garbage, so it counts as a fetch failure.
func DetectBlock(resp *http.Response, body []byte) (bool, BlockType) {
	if resp == nil {
		return false, BlockNone
	}

	if resp.StatusCode == 403 || resp.StatusCode == 503 {
		if resp.Header.Get("cf-ray") != "" ||
			resp.Header.Get("cf-cache-status") != "" ||
			resp.Header.Get("server") == "cloudflare" {
			return true, BlockCloudflare
		}
		if strings.HasPrefix(resp.Header.Get("server"), "AkamaiGHost") {
			return true, BlockAkamai
		}
	}

	lower := strings.ToLower(string(body))
	for _, m := range bodyMarkers {
		if strings.Contains(lower, m.marker) {
			return true, m.kind
		}
	}
	if strings.Contains(lower, "cloudflare") && strings.Contains(lower, "challenge") {
		return true, BlockCloudflare
	}

	if len(body) < jsShellMaxBytes {
		if strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
			return true, BlockJSShell
		}
		if strings.Contains(lower, "meta http-equiv=\"refresh\"") {
			return true, BlockJSShell
		}
	}

	return false, BlockNone
}
