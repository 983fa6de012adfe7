package core

const (
	CLIName = "sitesearch"
	VERSION = "v1.0.0"
)

const (
	// SitemapNamespace is the XML namespace of the sitemap protocol.
	SitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

	sitemapIndexTag = "sitemapindex"
	urlSetTag       = "urlset"
)

const (
	DefaultConcurrency = 5
	DefaultTimeout     = 10
)
