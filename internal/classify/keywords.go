package classify

import "regexp"

// majorDirectories is the allow-list of well-known general directories. A
// match here short-circuits tier 1 with high confidence regardless of any
// negative keyword also present in the name or URL.
var majorDirectories = []string{
	"yelp",
	"google business",
	"google.com/business",
	"yellowpages",
	"yellow pages",
	"bing places",
	"bbb.org",
	"better business bureau",
	"foursquare",
	"angi",
	"thumbtack",
	"manta",
	"superpages",
	"hotfrog",
	"merchantcircle",
	"citysearch",
	"chamberofcommerce",
	"nextdoor",
	"mapquest",
}

// negativeKeywords auto-fail tier 1 on a name/url substring match and feed
// the tier-2 negative score.
var negativeKeywords = []string{
	"adult",
	"casino",
	"gambling",
	"dating",
	"escort",
	"porn",
	"crypto",
	"forex",
	"payday",
	"pharma",
	"viagra",
	"essay",
	"betting",
	"vape",
	"cbd",
}

// positiveKeywords feed the tier-2 positive score over page text, URL, and
// title.
var positiveKeywords = []string{
	"business directory",
	"local business",
	"add your business",
	"list your business",
	"claim your listing",
	"business listing",
	"submit your site",
	"automotive",
	"auto repair",
	"car repair",
	"mechanic",
	"collision",
	"body shop",
	"towing",
	"service provider",
	"small business",
	"find local",
}

// industryCategoryPattern matches category-select options relevant to the
// automotive trades. A matching option set earns the tier-2 heavy bonus.
var industryCategoryPattern = regexp.MustCompile(
	`(?i)\b(auto(motive)?|car|vehicle|mechanic|repair|collision|body\s*shop|tow(ing)?|tire|transmission|oil\s*change)\b`)
