// Package scraper provides HTTP fetching and extraction of news candidates.
//
// A listing page is fetched once and handed to an Extractor chosen by source
// kind: HTML card strategies (goquery), a JSON news API, or an RSS/Atom feed.
// Each extractor walks an ordered list of strategies so that markup churn is
// absorbed here and never reaches the entry model. Detail pages are fetched
// one at a time with a politeness delay between requests, and their primary
// content container is located by an ordered selector list with an optional
// readability fallback.
package scraper
