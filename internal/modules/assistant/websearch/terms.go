package websearch

import (
	"net/url"
	"strings"
	"unicode"
)

const softwareDisambiguator = "software programming"

// softwareKeywords mark a query as already being about software; anything
// else gets the disambiguator appended so results stay on topic.
var softwareKeywords = toSet(
	"algorithm", "api", "async", "aws", "backend", "bug", "c++", "cache", "cli", "code",
	"coding", "compiler", "concurrency", "css", "database", "debug", "debugging", "deploy",
	"devops", "docker", "error", "exception", "framework", "frontend", "function", "git",
	"golang", "go", "graphql", "html", "http", "java", "javascript", "json", "kotlin",
	"kubernetes", "library", "linux", "microservices", "node", "nodejs", "npm", "programming",
	"python", "query", "react", "redis", "refactor", "regex", "rest", "rust", "sdk",
	"server", "software", "sql", "swift", "terraform", "typescript", "vue", "webpack",
)

// newsTerms indicate the user cares about what changed recently.
var newsTerms = []string{
	"announce", "announced", "breaking change", "changelog", "cve", "deprecated",
	"deprecation", "end of life", "eol", "latest", "launch", "migration guide",
	"new version", "release", "released", "roadmap", "security advisory", "upgrade",
	"vulnerability", "what's new",
}

// TechnicalDomains earn a relevance bonus.
var TechnicalDomains = []string{
	"baeldung.com", "cloud.google.com", "css-tricks.com", "dev.to", "developer.mozilla.org",
	"docs.docker.com", "docs.python.org", "freecodecamp.org", "github.com", "go.dev",
	"golang.org", "infoq.com", "kubernetes.io", "learn.microsoft.com", "martinfowler.com",
	"nodejs.org", "react.dev", "reactjs.org", "rust-lang.org", "stackexchange.com",
	"stackoverflow.com", "typescriptlang.org", "web.dev",
}

// EngineeringDomains is the allow list of SearchSoftwareEngineering.
var EngineeringDomains = []string{
	"stackoverflow.com", "github.com", "developer.mozilla.org", "dev.to", "martinfowler.com",
	"infoq.com", "go.dev", "react.dev", "docs.python.org", "kubernetes.io",
	"learn.microsoft.com", "engineering.fb.com", "netflixtechblog.com", "eng.uber.com",
	"blog.cloudflare.com", "aws.amazon.com", "cloud.google.com", "stackexchange.com",
}

func toSet(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '+' && r != '#'
	})
}

// EnhanceQuery appends a software disambiguator unless the query already
// names a software concept.
func EnhanceQuery(query string) string {
	query = strings.TrimSpace(query)
	for _, tok := range tokenize(query) {
		if _, ok := softwareKeywords[tok]; ok {
			return query
		}
	}
	return query + " " + softwareDisambiguator
}

// NeedsNews reports whether news-type results should be kept.
func NeedsNews(query string) bool {
	q := strings.ToLower(query)
	for _, t := range newsTerms {
		if strings.Contains(q, t) {
			return true
		}
	}
	return false
}

// scoringTerms are the distinct query tokens that count toward relevance.
// Tokens under three runes are ignored.
func scoringTerms(query string) []string {
	seen := map[string]bool{}
	var out []string
	for _, tok := range tokenize(query) {
		if len([]rune(tok)) < 3 || seen[tok] {
			continue
		}
		seen[tok] = true
		out = append(out, tok)
	}
	return out
}

func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// domainMatches reports whether host is domain or one of its subdomains.
func domainMatches(host string, domains []string) bool {
	if host == "" {
		return false
	}
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
