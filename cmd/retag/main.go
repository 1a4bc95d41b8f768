package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/sirwalterjones/threads-backend/internal/app"
	types "github.com/sirwalterjones/threads-backend/internal/domain"
	domainagg "github.com/sirwalterjones/threads-backend/internal/domain/aggregates"
	"github.com/sirwalterjones/threads-backend/internal/hashtag"
	"github.com/sirwalterjones/threads-backend/internal/platform/dbctx"
)

type tally struct {
	mu        sync.Mutex
	scanned   int
	drifted   int
	rewritten int
	failed    int
}

func main() {
	var workers int
	var batch int
	var dryRun bool
	var postFlag string
	flag.IntVar(&workers, "workers", 4, "posts reconciled in parallel")
	flag.IntVar(&batch, "batch", 100, "posts loaded per page")
	flag.BoolVar(&dryRun, "dry-run", false, "report drift without rewriting")
	flag.StringVar(&postFlag, "post", "", "reconcile a single post id")
	flag.Parse()

	if workers <= 0 {
		workers = 4
	}
	if batch <= 0 {
		batch = 100
	}
	if batch > 200 {
		batch = 200
	}

	application, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	t := &tally{}

	if postFlag != "" {
		id, err := uuid.Parse(strings.TrimSpace(postFlag))
		if err != nil || id == uuid.Nil {
			fmt.Printf("invalid -post id %q\n", postFlag)
			os.Exit(1)
		}
		post, err := application.Repos.Posts.GetByID(dbc, id)
		if err != nil {
			fmt.Printf("load post %s: %v\n", id.String(), err)
			os.Exit(1)
		}
		if post == nil {
			fmt.Printf("post not found: %s\n", id.String())
			os.Exit(1)
		}
		reconcilePost(ctx, application, dryRun, post, t)
	} else {
		offset := 0
		for {
			page, err := application.Repos.Posts.List(dbc, batch, offset)
			if err != nil {
				fmt.Printf("list posts offset=%d: %v\n", offset, err)
				os.Exit(1)
			}
			if len(page) == 0 {
				break
			}

			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(workers)
			for _, post := range page {
				post := post
				g.Go(func() error {
					reconcilePost(gctx, application, dryRun, post, t)
					return nil
				})
			}
			_ = g.Wait()

			if len(page) < batch {
				break
			}
			offset += len(page)
		}
	}

	orphans := orphanedTags(dbc, application)

	fmt.Printf("done; scanned=%d drifted=%d rewritten=%d failed=%d orphans=%d\n",
		t.scanned, t.drifted, t.rewritten, t.failed, len(orphans))
}

// reconcilePost recomputes the post's tags from its live comments and, unless
// dry-run, rewrites both representations through the aggregate. A per-post
// failure is counted, not fatal, so one bad row cannot stop the sweep.
func reconcilePost(ctx context.Context, application *app.App, dryRun bool, post *types.Post, t *tally) {
	t.mu.Lock()
	t.scanned++
	t.mu.Unlock()

	dbc := dbctx.Context{Ctx: ctx}
	bodies, err := application.Repos.Comments.ListBodiesByPostID(dbc, post.ID, nil)
	if err != nil {
		fmt.Printf("post %s: load comment bodies: %v\n", post.ID.String(), err)
		t.mu.Lock()
		t.failed++
		t.mu.Unlock()
		return
	}

	derived := derivedTags(bodies)
	column := storedTags(post.Tags)
	linked, err := linkedTags(dbc, application, post.ID)
	if err != nil {
		fmt.Printf("post %s: load associations: %v\n", post.ID.String(), err)
		t.mu.Lock()
		t.failed++
		t.mu.Unlock()
		return
	}

	drift := !sameSet(column, derived) || !sameSet(linked, derived)
	if drift {
		t.mu.Lock()
		t.drifted++
		t.mu.Unlock()
		fmt.Printf("post %s drift: column=%v linked=%v derived=%v\n", post.ID.String(), column, linked, derived)
	}
	if dryRun {
		return
	}

	res, err := application.Services.TagSync.RebuildPost(ctx, domainagg.PostRebuildInput{
		PostID: post.ID,
		Bodies: bodies,
	})
	if err != nil {
		fmt.Printf("post %s: rebuild: %v\n", post.ID.String(), err)
		t.mu.Lock()
		t.failed++
		t.mu.Unlock()
		return
	}
	if res.Changed {
		t.mu.Lock()
		t.rewritten++
		t.mu.Unlock()
		fmt.Printf("rewrote post %s added=%v removed=%v\n", post.ID.String(), res.Added, res.Removed)
	}
}

// orphanedTags reports registered tags no live post references. They stay
// registered; the sweep never prunes the registry.
func orphanedTags(dbc dbctx.Context, application *app.App) []string {
	tags, err := application.Repos.Tags.ListAll(dbc)
	if err != nil {
		fmt.Printf("list tags: %v\n", err)
		return nil
	}
	if len(tags) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(tags))
	for _, tag := range tags {
		ids = append(ids, tag.ID)
	}
	counts, err := application.Repos.PostTags.CountByTagIDs(dbc, ids)
	if err != nil {
		fmt.Printf("count tag references: %v\n", err)
		return nil
	}
	var orphans []string
	for _, tag := range tags {
		if counts[tag.ID] == 0 {
			orphans = append(orphans, tag.Label)
		}
	}
	if len(orphans) > 0 {
		fmt.Printf("orphaned tags (registered, no live post): %s\n", strings.Join(orphans, " "))
	}
	return orphans
}

// derivedTags unions the labels mentioned across the bodies in first
// appearance order.
func derivedTags(bodies []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, body := range bodies {
		for _, label := range hashtag.Extract(body) {
			if _, ok := seen[label]; ok {
				continue
			}
			seen[label] = struct{}{}
			out = append(out, label)
		}
	}
	return out
}

// storedTags decodes the denormalized column. A malformed column reads as
// empty here so the sweep flags it as drift instead of crashing.
func storedTags(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var labels []string
	if err := json.Unmarshal(raw, &labels); err != nil {
		return nil
	}
	return labels
}

func linkedTags(dbc dbctx.Context, application *app.App, postID uuid.UUID) ([]string, error) {
	tagIDs, err := application.Repos.PostTags.ListTagIDsByPostID(dbc, postID)
	if err != nil {
		return nil, err
	}
	if len(tagIDs) == 0 {
		return nil, nil
	}
	rows, err := application.Repos.Tags.GetByIDs(dbc, tagIDs)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(rows))
	for _, row := range rows {
		labels = append(labels, row.Label)
	}
	return labels, nil
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, label := range a {
		set[label] = struct{}{}
	}
	for _, label := range b {
		if _, ok := set[label]; !ok {
			return false
		}
	}
	return true
}
