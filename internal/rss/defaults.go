package rss

// DefaultFeeds is the built-in catalogue used when no feeds file is present.
// Tier 1 are newsletters carrying several stories per item, tier 2 news
// sites, tier 3 official blogs and tier 4 community sources.
func DefaultFeeds() []FeedSource {
	return []FeedSource{
		{Name: "The Rundown AI", URL: "https://rss.app/feeds/Kc554BCmk9PUValj.xml", Category: "newsletter", Tier: 1},
		{Name: "Ben's Bites", URL: "https://rss.app/feeds/O60XfEFYoxJhYVkS.xml", Category: "newsletter", Tier: 1},
		{Name: "The Neuron", URL: "https://rss.app/feeds/e2QjBpEDLPfVUeoI.xml", Category: "newsletter", Tier: 1},
		{Name: "Superhuman AI", URL: "https://rss.app/feeds/3tDyvQwHp8cgL7qs.xml", Category: "newsletter", Tier: 1},
		{Name: "Techspresso", URL: "https://www.dupple.com/techpresso-archives/rss.xml", Category: "newsletter", Tier: 1},
		{Name: "TLDR AI", URL: "https://tldr.tech/ai/rss", Category: "newsletter", Tier: 1},

		{Name: "TechCrunch AI", URL: "https://techcrunch.com/category/artificial-intelligence/feed/", Category: "news", Tier: 2},
		{Name: "The Verge AI", URL: "https://www.theverge.com/rss/ai-artificial-intelligence/index.xml", Category: "news", Tier: 2},
		{Name: "VentureBeat AI", URL: "https://venturebeat.com/category/ai/feed/", Category: "news", Tier: 2},
		{Name: "Ars Technica AI", URL: "https://feeds.arstechnica.com/arstechnica/technology-lab", Category: "news", Tier: 2},
		{Name: "Wired AI", URL: "https://www.wired.com/feed/tag/ai/latest/rss", Category: "news", Tier: 2},
		{Name: "MIT News AI", URL: "https://news.mit.edu/topic/artificial-intelligence2-rss.xml", Category: "news", Tier: 2},

		{Name: "OpenAI Blog", URL: "https://openai.com/blog/rss/", Category: "blog", Tier: 3},
		{Name: "Google AI Blog", URL: "https://blog.google/technology/ai/rss/", Category: "blog", Tier: 3},
		{Name: "Anthropic News", URL: "https://www.anthropic.com/news/rss", Category: "blog", Tier: 3},

		{Name: "Hacker News AI", URL: "https://hnrss.org/newest?q=AI+OR+GPT+OR+LLM+OR+Claude+OR+OpenAI&points=50", Category: "social", Tier: 4},
		{Name: "r/ArtificialInteligence", URL: "https://www.reddit.com/r/ArtificialInteligence/top/.rss?t=day", Category: "social", Tier: 4},
		{Name: "r/LocalLLaMA", URL: "https://www.reddit.com/r/LocalLLaMA/top/.rss?t=day", Category: "social", Tier: 4},
		{Name: "r/MachineLearning", URL: "https://www.reddit.com/r/MachineLearning/top/.rss?t=day", Category: "social", Tier: 4},
		{Name: "r/OpenAI", URL: "https://www.reddit.com/r/OpenAI/top/.rss?t=day", Category: "social", Tier: 4},
		{Name: "r/Singularity", URL: "https://www.reddit.com/r/singularity/top/.rss?t=day", Category: "social", Tier: 4},
	}
}
