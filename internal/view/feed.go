package view

import (
	"fmt"
	"io"

	"github.com/gorilla/feeds"

	"github.com/hitoshi/launchlog/internal/model"
)

// FeedContentType はAtomフィードのContent-Type。
const FeedContentType = "application/atom+xml"

// Feed は全記事をAtom 1.0文書として書き込む。
// 各エントリのcontentにはエントリ部品のHTMLをサニタイズして埋め込む。
// フィードのupdatedは最新記事の日時（記事がない場合は現在時刻）とする。
func (r *Renderer) Feed(w io.Writer, posts []*model.Post) error {
	feed, err := r.buildFeed(posts)
	if err != nil {
		return err
	}
	if err := feed.WriteAtom(w); err != nil {
		return fmt.Errorf("failed to write atom feed: %w", err)
	}
	return nil
}

func (r *Renderer) buildFeed(posts []*model.Post) (*feeds.Feed, error) {
	updated := r.now().UTC()
	if len(posts) > 0 {
		updated = posts[0].Date.UTC()
		for _, p := range posts[1:] {
			if p.Date.After(updated) {
				updated = p.Date.UTC()
			}
		}
	}

	feed := &feeds.Feed{
		Title:   r.blogTitle,
		Id:      r.baseURL + "/",
		Link:    &feeds.Link{Href: r.baseURL + "/"},
		Updated: updated,
		Items:   make([]*feeds.Item, 0, len(posts)),
	}

	for _, p := range posts {
		// フィードには編集リンクを含めない
		entry := r.entryView(Viewer{}, p, r.baseURL)
		content, err := r.renderEntryModule(entry)
		if err != nil {
			return nil, err
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Id:      entry.Permalink,
			Title:   p.Location,
			Link:    &feeds.Link{Href: entry.Permalink},
			Created: p.Date.UTC(),
			Updated: p.Date.UTC(),
			Content: r.sanitizer.Sanitize(content),
		})
	}

	return feed, nil
}
