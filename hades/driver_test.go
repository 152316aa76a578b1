package hades_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lunagic/hades/hades"
	"gotest.tools/v3/assert"
)

type AuthorID int64

type Author struct {
	ID   AuthorID `db:"id,primaryKey,autoIncrement"`
	Name string   `db:"name"`
}

func (e Author) TableName() string {
	return "author"
}

type ArticleSettings struct {
	FeatureFlag string
}

type Article struct {
	ID        int64           `db:"id,primaryKey,autoIncrement"`
	AuthorID  AuthorID        `db:"author_id"`
	Title     string          `db:"title"`
	Score     int             `db:"score"`
	CreatedAt time.Time       `db:"created_at"`
	Revision  int             `db:"revision,readOnly"`
	Tags      []string        `db:"tags"`
	Settings  ArticleSettings `db:"settings"`
}

func (e Article) TableName() string {
	return "article"
}

type AuditedNote struct {
	ID   int64  `db:"id,primaryKey,autoIncrement"`
	Body string `db:"body"`

	hookLog *[]string
}

func (e AuditedNote) TableName() string {
	return "audited_note"
}

func (e *AuditedNote) BeforeSave(ctx context.Context) error {
	*e.hookLog = append(*e.hookLog, "BeforeSave")

	return nil
}

func (e *AuditedNote) AfterSave(ctx context.Context) error {
	*e.hookLog = append(*e.hookLog, "AfterSave")

	return nil
}

func (e *AuditedNote) BeforeDelete(ctx context.Context) error {
	*e.hookLog = append(*e.hookLog, "BeforeDelete")

	return nil
}

func (e *AuditedNote) AfterDelete(ctx context.Context) error {
	*e.hookLog = append(*e.hookLog, "AfterDelete")

	return nil
}

type LegacyImport struct {
	Code  string `db:"code"`
	Label string `db:"label"`
}

func (e LegacyImport) TableName() string {
	return "legacy_import"
}

func testSuite(t *testing.T, driver hades.Driver, configFuncs ...hades.DatabaseConfigFunc) {
	statementLog := []string{}

	configFuncs = append(configFuncs,
		hades.WithLogger(slog.Default()),
		hades.WithPreRunFunc(func(ctx context.Context, statement string, args []any) error {
			statementLog = append(statementLog, statement)

			return nil
		}),
	)

	database, err := hades.New(driver, configFuncs...)
	assert.NilError(t, err)
	t.Cleanup(func() {
		assert.NilError(t, database.Close())
	})

	authors := hades.NewTable[Author](database)
	articles := hades.NewTable[Article](database)
	notes := hades.NewTable[AuditedNote](database)
	imports := hades.NewTable[LegacyImport](database)

	author := Author{Name: uuid.NewString()}
	featureFlag := uuid.NewString()
	article := Article{
		Title:     uuid.NewString(),
		Score:     10,
		CreatedAt: time.Now(),
		Revision:  99,
		Tags:      []string{"go", "sql"},
		Settings:  ArticleSettings{FeatureFlag: featureFlag},
	}

	{ // Insert assigns the generated ids back onto the rows
		assert.NilError(t, authors.Insert(t.Context(), &author))
		assert.Equal(t, author.ID, AuthorID(1))

		article.AuthorID = author.ID
		assert.NilError(t, articles.Insert(t.Context(), &article))
		assert.Equal(t, article.ID, int64(1))
	}

	{ // Find hydrates the row back out, json fields and all
		fetched, err := articles.Find(t.Context(), article.ID)
		assert.NilError(t, err)
		assert.Equal(t, fetched.Title, article.Title)
		assert.Equal(t, fetched.AuthorID, author.ID)
		assert.DeepEqual(t, fetched.Tags, []string{"go", "sql"})
		assert.Equal(t, fetched.Settings.FeatureFlag, featureFlag)
		assert.Assert(t, !fetched.CreatedAt.IsZero())

		// The readOnly column never traveled on the insert
		assert.Equal(t, fetched.Revision, 1)
	}

	moreTitle := uuid.NewString()

	{ // Seed a few more rows for the builder sections
		for _, score := range []int{20, 30, 40} {
			next := Article{
				AuthorID:  author.ID,
				Title:     moreTitle,
				Score:     score,
				CreatedAt: time.Now(),
				Tags:      []string{},
				Settings:  ArticleSettings{},
			}
			assert.NilError(t, articles.Insert(t.Context(), &next))
		}
	}

	{ // Filter, sort, and cap a fetch
		rows, err := articles.Query().
			Where("`score` >= ?", 20).
			SortBy(hades.Descending("score")).
			Limit(2).
			Fetch(t.Context())
		assert.NilError(t, err)
		assert.Equal(t, len(rows), 2)
		assert.Equal(t, rows[0].Score, 40)
		assert.Equal(t, rows[1].Score, 30)
	}

	{ // The offset folds into the limit
		rows, err := articles.Query().
			SortBy("score").
			Limit(2).
			Offset(1).
			Fetch(t.Context())
		assert.NilError(t, err)
		assert.Equal(t, len(rows), 2)
		assert.Equal(t, rows[0].Score, 20)
		assert.Equal(t, rows[1].Score, 30)
	}

	{ // A slice value splats into an inline list
		count, err := articles.Query().
			Where("`score` IN ?", []int{20, 40}).
			Count(t.Context())
		assert.NilError(t, err)
		assert.Equal(t, count, int64(2))
	}

	{ // Count reuses fetched rows instead of running again
		query := articles.Query().Where("`score` >= ?", 20)

		rows, err := query.Fetch(t.Context())
		assert.NilError(t, err)

		ranBefore := len(statementLog)
		count, err := query.Count(t.Context())
		assert.NilError(t, err)
		assert.Equal(t, count, int64(len(rows)))
		assert.Equal(t, len(statementLog), ranBefore)
	}

	{ // A fresh builder counts on the server
		ranBefore := len(statementLog)
		count, err := articles.Query().Where("`score` >= ?", 20).Count(t.Context())
		assert.NilError(t, err)
		assert.Equal(t, count, int64(3))
		assert.Equal(t, len(statementLog), ranBefore+1)
	}

	{ // The first iterator replays the fetched rows, the next one refetches
		query := articles.Query().Where("`title` = ?", moreTitle)

		_, err := query.Fetch(t.Context())
		assert.NilError(t, err)

		ranBefore := len(statementLog)
		seen := 0
		iterator := query.Iter(t.Context())
		for iterator.Next() {
			assert.Equal(t, iterator.Row().Title, moreTitle)
			seen++
		}
		assert.NilError(t, iterator.Err())
		assert.Equal(t, seen, 3)
		assert.Equal(t, len(statementLog), ranBefore)

		extra := Article{
			AuthorID:  author.ID,
			Title:     moreTitle,
			Score:     50,
			CreatedAt: time.Now(),
			Tags:      []string{},
			Settings:  ArticleSettings{},
		}
		assert.NilError(t, articles.Insert(t.Context(), &extra))

		second := query.Iter(t.Context())
		seenAgain := 0
		for second.Next() {
			seenAgain++
		}
		assert.NilError(t, second.Err())
		assert.Equal(t, seenAgain, 4)
	}

	{ // Set compiles its columns in sorted order and drops the row cache
		query := articles.Query().Where("`title` = ?", moreTitle)

		countBefore, err := query.Count(t.Context())
		assert.NilError(t, err)
		assert.Equal(t, countBefore, int64(4))

		_, err = query.Fetch(t.Context())
		assert.NilError(t, err)

		touched, err := query.Set(t.Context(), hades.Values{
			"title": uuid.NewString(),
			"score": 60,
		})
		assert.NilError(t, err)
		assert.Equal(t, touched, int64(4))
		assert.Equal(t,
			statementLog[len(statementLog)-1],
			"UPDATE `article` SET `score` = ?, `title` = ? WHERE `title` = ?",
		)

		countAfter, err := query.Count(t.Context())
		assert.NilError(t, err)
		assert.Equal(t, countAfter, int64(0))
	}

	{ // Delete removes what matches and reports the count
		removed, err := articles.Query().Where("`score` = ?", 60).Delete(t.Context())
		assert.NilError(t, err)
		assert.Equal(t, removed, int64(4))

		remaining, err := articles.Query().Count(t.Context())
		assert.NilError(t, err)
		assert.Equal(t, remaining, int64(1))
	}

	{ // First returns the single row, or ErrNoRows on a miss
		first, err := articles.Query().SortBy("id").First(t.Context())
		assert.NilError(t, err)
		assert.Equal(t, first.ID, article.ID)

		_, err = articles.Query().Where("`score` = ?", -1).First(t.Context())
		assert.ErrorIs(t, err, hades.ErrNoRows)

		_, err = authors.Find(t.Context(), 999999)
		assert.ErrorIs(t, err, hades.ErrNoRows)
	}

	{ // Project untyped columns with aliases
		second := Author{Name: uuid.NewString()}
		assert.NilError(t, authors.Insert(t.Context(), &second))

		next := Article{
			AuthorID:  second.ID,
			Title:     uuid.NewString(),
			Score:     70,
			CreatedAt: time.Now(),
			Tags:      []string{},
			Settings:  ArticleSettings{},
		}
		assert.NilError(t, articles.Insert(t.Context(), &next))

		records, err := articles.Query().
			GroupBy("author_id").
			SortBy("author_id").
			FetchColumns(t.Context(), "author_id", hades.As("COUNT(*)", "written"))
		assert.NilError(t, err)
		assert.Equal(t, len(records), 2)
		assert.Equal(t, records[0]["author_id"], int64(author.ID))
		assert.Equal(t, records[0]["written"], int64(1))
		assert.Equal(t, records[1]["author_id"], int64(second.ID))
		assert.Equal(t, records[1]["written"], int64(1))
	}

	{ // Having filters after grouping
		records, err := articles.Query().
			GroupBy("author_id").
			Having("COUNT(*) > ?", 0).
			FetchColumns(t.Context(), "author_id")
		assert.NilError(t, err)
		assert.Equal(t, len(records), 2)
	}

	{ // Save and Delete fire the lifecycle hooks in order
		hookLog := []string{}
		note := AuditedNote{Body: uuid.NewString(), hookLog: &hookLog}

		assert.NilError(t, notes.Save(t.Context(), &note))
		assert.Assert(t, note.ID != 0)

		note.Body = uuid.NewString()
		assert.NilError(t, notes.Save(t.Context(), &note))

		fetched, err := notes.Find(t.Context(), note.ID)
		assert.NilError(t, err)
		assert.Equal(t, fetched.Body, note.Body)

		assert.NilError(t, notes.Delete(t.Context(), &note))

		assert.DeepEqual(t, hookLog, []string{
			"BeforeSave",
			"AfterSave",
			"BeforeSave",
			"AfterSave",
			"BeforeDelete",
			"AfterDelete",
		})
	}

	{ // The key column comes from server metadata when no field tags one
		row := LegacyImport{Code: uuid.NewString(), Label: uuid.NewString()}
		assert.NilError(t, imports.Insert(t.Context(), &row))

		fetched, err := imports.Find(t.Context(), row.Code)
		assert.NilError(t, err)
		assert.Equal(t, fetched.Label, row.Label)

		row.Label = uuid.NewString()
		assert.NilError(t, imports.Save(t.Context(), &row))

		updated, err := imports.Find(t.Context(), row.Code)
		assert.NilError(t, err)
		assert.Equal(t, updated.Label, row.Label)
	}

	{ // Server failures surface as ExecError with the driver's code
		_, err := articles.Query().Where("`no_such_column` = ?", 1).Fetch(t.Context())

		execError := &hades.ExecError{}
		assert.Assert(t, errors.As(err, &execError))
		assert.Assert(t, execError.Code != 0)
	}
}
