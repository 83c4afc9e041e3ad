package catalog

import (
	"net/url"
	"strings"
)

// Static lookup tables used by the merger and the state classifiers. These are
// substring tables: an app or domain matches a category when it contains one of
// the listed fragments, case-insensitively.

// focusApps are applications whose foreground use counts as deep-focus work.
var focusApps = []string{
	"code", "visual studio", "vim", "emacs", "sublime", "atom",
	"pycharm", "intellij", "goland", "terminal", "iterm",
}

// distractionApps maps a distraction category to app-name fragments.
var distractionApps = map[string][]string{
	"social": {"facebook", "twitter", "instagram", "tiktok", "snapchat", "discord"},
	"video":  {"youtube", "netflix", "twitch", "hulu", "prime video"},
	"news":   {"reddit", "hackernews", "cnn", "bbc"},
	"games":  {"steam", "minecraft", "fortnite", "league of legends"},
}

// distractionDomains maps a distraction category to web domains.
var distractionDomains = map[string][]string{
	"social": {"facebook.com", "twitter.com", "instagram.com", "tiktok.com", "discord.com"},
	"video":  {"youtube.com", "netflix.com", "twitch.tv", "hulu.com"},
	"news":   {"reddit.com", "news.ycombinator.com", "cnn.com", "bbc.com"},
	"games":  {"store.steampowered.com"},
}

// productivityApps maps a productive category to app-name fragments.
var productivityApps = map[string][]string{
	"coding":   {"code", "visual studio", "vim", "emacs", "sublime", "atom", "pycharm", "intellij", "terminal"},
	"writing":  {"word", "docs", "notion", "obsidian", "notepad", "typora", "scrivener"},
	"design":   {"photoshop", "illustrator", "figma", "sketch", "canva"},
	"research": {"chrome", "firefox", "safari", "edge", "brave"},
}

// productiveDomains maps web domains to the task they usually indicate. The
// domain table takes priority over title-keyword inference.
var productiveDomains = map[string]string{
	"github.com":         "Code development",
	"gitlab.com":         "Code development",
	"stackoverflow.com":  "Research/learning",
	"docs.google.com":    "Document editing",
	"mail.google.com":    "Email management",
	"outlook.office.com": "Email management",
	"zoom.us":            "Video meeting",
	"meet.google.com":    "Video meeting",
	"notion.so":          "Document editing",
	"en.wikipedia.org":   "Research/learning",
}

// titleTasks pairs window-title fragments with an inferred task, checked in
// order. Used as a fallback when no domain mapping applies.
var titleTasks = []struct {
	keywords []string
	task     string
}{
	{[]string{"github", "git"}, "Code development"},
	{[]string{"email", "inbox", "gmail", "outlook"}, "Email management"},
	{[]string{"meeting", "zoom", "teams"}, "Video meeting"},
	{[]string{"stackoverflow", "documentation", "tutorial"}, "Research/learning"},
	{[]string{"doc", "document", "writing", "report"}, "Document editing"},
	{[]string{"slack", "discord"}, "Team communication"},
	{[]string{".py", ".js", ".go", ".java", ".cpp", ".rs"}, "Programming"},
}

// IsFocusApp reports whether the application is on the focus allow-list.
func IsFocusApp(app string) bool {
	return matchAny(app, focusApps)
}

// IsDistractionApp reports whether the application is a known distraction.
func IsDistractionApp(app string) bool {
	for _, frags := range distractionApps {
		if matchAny(app, frags) {
			return true
		}
	}
	return false
}

// IsDistractionTitle reports whether a window title mentions a distraction
// site or app.
func IsDistractionTitle(title string) bool {
	if IsDistractionApp(title) {
		return true
	}
	for _, domains := range distractionDomains {
		if matchAny(title, domains) {
			return true
		}
	}
	return false
}

// IsDistractionDomain reports whether a web domain is a known distraction.
func IsDistractionDomain(domain string) bool {
	for _, domains := range distractionDomains {
		if matchAny(domain, domains) {
			return true
		}
	}
	return false
}

// AppCategory classifies an application as productive_*, distraction_*, or
// neutral.
func AppCategory(app string) string {
	for cat, frags := range productivityApps {
		if matchAny(app, frags) {
			return "productive_" + cat
		}
	}
	for cat, frags := range distractionApps {
		if matchAny(app, frags) {
			return "distraction_" + cat
		}
	}
	return "neutral"
}

// DomainCategory classifies a web domain as distraction_* or neutral.
func DomainCategory(domain string) string {
	for cat, domains := range distractionDomains {
		if matchAny(domain, domains) {
			return "distraction_" + cat
		}
	}
	return "neutral"
}

// TaskForApp infers a coarse task from an application name and window title.
// The app category decides first; the title keyword table is the fallback.
func TaskForApp(app, title string) string {
	if task := TaskForTitle(title); task != "" {
		return task
	}
	switch {
	case strings.HasPrefix(AppCategory(app), "productive_coding"):
		return "Programming"
	case strings.HasPrefix(AppCategory(app), "productive_writing"):
		return "Document editing"
	case strings.HasPrefix(AppCategory(app), "productive_design"):
		return "Design work"
	}
	return ""
}

// TaskForDomain infers a task from a web domain, falling back to the title
// keyword table. Returns "" when nothing matches.
func TaskForDomain(domain, title string) string {
	d := strings.ToLower(domain)
	if task, ok := productiveDomains[d]; ok {
		return task
	}
	if IsDistractionDomain(d) {
		return "Browsing " + DomainCategory(d)[len("distraction_"):]
	}
	return TaskForTitle(title)
}

// TaskForTitle infers a task from a window or page title alone.
func TaskForTitle(title string) string {
	if title == "" {
		return ""
	}
	lower := strings.ToLower(title)
	for _, tt := range titleTasks {
		for _, kw := range tt.keywords {
			if strings.Contains(lower, kw) {
				return tt.task
			}
		}
	}
	return ""
}

// Domain extracts the host from a URL, stripping any www. prefix. Returns
// "unknown" for unparseable input.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

func matchAny(s string, frags []string) bool {
	lower := strings.ToLower(s)
	for _, f := range frags {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}
