package usecase

import (
	"context"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"time"

	"telegram-file-vault/internal/domain/model"
	"telegram-file-vault/internal/infra/cache"
	"telegram-file-vault/internal/infra/logging"
)

var datePattern = regexp.MustCompile(`date:(\d{4}-\d{2}-\d{2})`)

// ParseSearch lower-cases raw and extracts a leading date:YYYY-MM-DD filter.
// An unparsable date is dropped from the query without filtering.
func ParseSearch(raw string) model.SearchQuery {
	q := strings.ToLower(strings.TrimSpace(raw))
	out := model.SearchQuery{Text: q, Limit: searchLimit}
	if !strings.HasPrefix(q, "date:") {
		return out
	}
	m := datePattern.FindStringSubmatch(q)
	if m == nil {
		return out
	}
	out.Text = strings.TrimSpace(strings.Replace(q, "date:"+m[1], "", 1))
	if day, err := time.Parse("2006-01-02", m[1]); err == nil {
		out.Day = &day
	}
	return out
}

func searchKey(q model.SearchQuery) string {
	h := fnv.New64a()
	h.Write([]byte(q.Text))
	if q.Day != nil {
		h.Write([]byte("|" + q.Day.Format("2006-01-02")))
	}
	return fmt.Sprintf("search_%x", h.Sum64())
}

func (f *fileUC) Search(ctx context.Context, raw string, chatID, userID int64, inGroup bool) ([]*model.File, error) {
	defer logging.TraceDuration(f.log, "FileUC.Search")()

	q := ParseSearch(raw)
	if inGroup {
		f.groups.RecordActivity(ctx, chatID, model.ActivitySearch, userID, strings.ToLower(strings.TrimSpace(raw)))
	}
	return cache.Remember(ctx, f.cache, f.rec, "search", searchKey(q), searchTTL,
		func(ctx context.Context) ([]*model.File, error) { return f.files.Search(ctx, q) })
}
