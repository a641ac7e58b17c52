package intent

// Definition describes one search intent: the keywords that signal it in a
// query, the hostnames it is associated with, and the score boost applied to
// candidates from those hosts.
type Definition struct {
	Name     string
	Keywords []string
	Domains  []string
	Boost    float64
}

// Defaults returns the built-in intent table. Keyword order matters only for
// reporting; detection strength is matchedCount / len(Keywords).
func Defaults() []Definition {
	return []Definition{
		{
			Name:     "funny",
			Keywords: []string{"funny", "humor", "comedy", "laugh", "hilarious", "joke", "meme", "amusing"},
			Domains:  []string{"youtube.com", "tiktok.com", "reddit.com", "imgur.com", "giphy.com", "vimeo.com", "dailymotion.com"},
			Boost:    0.25,
		},
		{
			Name:     "shopping",
			Keywords: []string{"buy", "purchase", "shop", "product", "price", "discount", "deal", "store", "cart", "checkout"},
			Domains:  []string{"amazon.com", "ebay.com", "walmart.com", "etsy.com", "shopify.com", "bestbuy.com", "target.com"},
			Boost:    0.20,
		},
		{
			Name:     "news",
			Keywords: []string{"news", "article", "report", "current", "event", "update", "latest", "breaking", "headline"},
			Domains:  []string{"cnn.com", "bbc.com", "nytimes.com", "wsj.com", "reuters.com", "apnews.com", "washingtonpost.com"},
			Boost:    0.20,
		},
		{
			Name:     "recipe",
			Keywords: []string{"recipe", "cook", "food", "meal", "dish", "ingredient", "bake", "kitchen", "dinner", "breakfast"},
			Domains:  []string{"allrecipes.com", "foodnetwork.com", "epicurious.com", "simplyrecipes.com", "tasty.co", "bonappetit.com"},
			Boost:    0.20,
		},
		{
			Name:     "tech",
			Keywords: []string{"technology", "software", "program", "code", "app", "device", "tech", "computer", "developer", "github"},
			Domains:  []string{"github.com", "stackoverflow.com", "techcrunch.com", "wired.com", "theverge.com", "arstechnica.com"},
			Boost:    0.20,
		},
		{
			Name:     "learn",
			Keywords: []string{"learn", "course", "tutorial", "education", "study", "guide", "how to", "lesson", "training"},
			Domains:  []string{"udemy.com", "coursera.org", "khanacademy.org", "edx.org", "youtube.com", "linkedin.com/learning"},
			Boost:    0.18,
		},
	}
}
