package redis

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/indexsync/internal/db"
	"github.com/kailas-cloud/indexsync/internal/domain/schema"
	"github.com/kailas-cloud/indexsync/internal/repository/index"
)

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	err := s.Ping(context.Background())
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error without addrs")
	}
}

func TestIsRedisErr(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisError("ERR Unknown Index Name")))

	err := c.Do(context.Background(), c.B().Ping().Build()).Error()
	if !IsRedisErr(err, "unknown index name") {
		t.Errorf("expected case-insensitive match for %v", err)
	}
	if !IsServerReply(err) {
		t.Error("server error should count as a reply")
	}
	if IsRedisErr(context.DeadlineExceeded, "deadline") || IsServerReply(context.DeadlineExceeded) {
		t.Error("transport errors are not server replies")
	}
}

// --- index.go tests ---

func TestCreateIndex_Args(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	want := []string{
		"FT.CREATE", "indexsync:content:idx",
		"ON", "HASH",
		"PREFIX", "1", "indexsync:content:",
		"LANGUAGE", "german",
		"SCHEMA",
		"id", "TAG", "SEPARATOR", " ", "SORTABLE",
		"x__IndexType", "TAG", "SEPARATOR", " ",
		"title", "TEXT", "NOSTEM", "SORTABLE",
		"views", "NUMERIC",
	}
	c.EXPECT().
		Do(gomock.Any(), mock.Match(want...)).
		Return(mock.Result(mock.RedisString("OK")))

	def := db.NewIndex("indexsync:content:idx").
		Prefix("indexsync:content:").
		Language("german").
		TagWithOpts("id", " ", false, true).
		TagWithOpts("x__IndexType", " ", false, false).
		Text("title", true, true).
		Numeric("views", false).
		MustBuild()

	s := NewStoreForTest(c)
	if err := s.CreateIndex(context.Background(), def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateIndex_MandatoryFieldsExactMatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	sch, err := schema.New("content", nil)
	if err != nil {
		t.Fatalf("schema.New: %v", err)
	}
	def, err := index.BuildDefinition(index.NewKeys("indexsync:", "content"), sch, "standard")
	if err != nil {
		t.Fatalf("BuildDefinition: %v", err)
	}

	// One case-sensitive tag per value: "blog" never matches "blog post" or "Blog".
	c.EXPECT().
		Do(gomock.Any(), mock.Match(
			"FT.CREATE", "indexsync:content:idx",
			"ON", "HASH",
			"PREFIX", "1", "indexsync:content:",
			"SCHEMA",
			"id", "TAG", "SEPARATOR", ",", "CASESENSITIVE", "SORTABLE",
			"x__IndexType", "TAG", "SEPARATOR", ",", "CASESENSITIVE",
		)).
		Return(mock.Result(mock.RedisString("OK")))

	if err := NewStoreForTest(c).CreateIndex(context.Background(), def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.CREATE" })).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreForTest(c)
	err := s.CreateIndex(context.Background(), db.NewIndex("idx").Tag("id", true).MustBuild())
	if !errors.Is(err, db.ErrIndexExists) {
		t.Fatalf("expected ErrIndexExists, got %v", err)
	}
}

func TestCreateIndex_Rejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.CREATE" })).
		Return(mock.Result(mock.RedisError("Invalid field type")))

	s := NewStoreForTest(c)
	err := s.CreateIndex(context.Background(), db.NewIndex("idx").Tag("id", true).MustBuild())
	if !isDBError(err) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestCreateIndex_InvalidDefinition(t *testing.T) {
	s := NewStoreForTest(nil) // client not called
	if err := s.CreateIndex(context.Background(), &db.IndexDefinition{Name: "idx"}); err == nil {
		t.Fatal("expected validation error")
	}
	if err := s.CreateIndex(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil definition")
	}
}

func TestIndexExists(t *testing.T) {
	tests := []struct {
		name    string
		result  rueidis.RedisResult
		want    bool
		wantErr bool
	}{
		{"present", mock.Result(mock.RedisArray(mock.RedisString("index_name"))), true, false},
		{"absent", mock.Result(mock.RedisError("Unknown index name")), false, false},
		{"absent valkey", mock.Result(mock.RedisError("no such index")), false, false},
		{"transport", mock.ErrorResult(context.DeadlineExceeded), false, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			c := mock.NewClient(ctrl)
			c.EXPECT().Do(gomock.Any(), mock.Match("FT.INFO", "idx")).Return(tc.result)

			got, err := NewStoreForTest(c).IndexExists(context.Background(), "idx")
			if (err != nil) != tc.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestDropIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("FT.DROPINDEX", "idx")).
			Return(mock.Result(mock.RedisString("OK"))),
		c.EXPECT().Do(gomock.Any(), mock.Match("FT.DROPINDEX", "idx")).
			Return(mock.Result(mock.RedisError("Unknown Index name"))),
	)

	s := NewStoreForTest(c)
	if err := s.DropIndex(context.Background(), "idx"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.DropIndex(context.Background(), "idx"); !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

// --- bulk.go tests ---

func TestBulk_UploadAndDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var sent [][]string
	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			out := make([]rueidis.RedisResult, len(cmds))
			for i, cmd := range cmds {
				sent = append(sent, cmd.Commands())
				out[i] = mock.Result(mock.RedisInt64(1))
			}
			return out
		})

	s := NewStoreForTest(c)
	res, err := s.Bulk(context.Background(), []db.BulkOp{
		db.Upload("p:1", map[string]string{"title": "Hello", "id": "1"}),
		db.Delete("p:2"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := [][]string{
		{"EVAL", replaceScript, "1", "p:1", "id", "1", "title", "Hello"},
		{"DEL", "p:2"},
	}
	if len(sent) != len(want) {
		t.Fatalf("sent %v, want %v", sent, want)
	}
	for i := range want {
		if !slices.Equal(sent[i], want[i]) {
			t.Errorf("cmd %d = %v, want %v", i, sent[i], want[i])
		}
	}
	if len(res) != 2 || !res[0].Succeeded || !res[1].Succeeded {
		t.Errorf("unexpected results: %+v", res)
	}
}

func TestBulk_PerItemRejection(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			out := make([]rueidis.RedisResult, len(cmds))
			for i, cmd := range cmds {
				out[i] = mock.Result(mock.RedisInt64(1))
				if cmd.Commands()[1] == "p:2" {
					out[i] = mock.Result(mock.RedisError("WRONGTYPE Operation against a key"))
				}
			}
			return out
		})

	s := NewStoreForTest(c)
	res, err := s.Bulk(context.Background(), []db.BulkOp{
		db.Delete("p:1"),
		db.Delete("p:2"),
		db.Delete("p:3"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res[0].Succeeded || res[1].Succeeded || !res[2].Succeeded {
		t.Fatalf("unexpected results: %+v", res)
	}
	if res[1].Err == nil || res[1].Key != "p:2" {
		t.Errorf("failed result should carry key and error: %+v", res[1])
	}
}

func TestBulk_UploadRejectedAsOneUnit(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			if len(cmds) != 1 || cmds[0].Commands()[0] != "EVAL" {
				t.Errorf("upload must be a single EVAL, got %d commands", len(cmds))
			}
			return []rueidis.RedisResult{
				mock.Result(mock.RedisError("OOM command not allowed when used memory > 'maxmemory'")),
			}
		})

	res, err := NewStoreForTest(c).Bulk(context.Background(), []db.BulkOp{
		db.Upload("p:1", map[string]string{"id": "1"}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res[0].Succeeded || res[0].Err == nil {
		t.Fatalf("expected rejected upload, got %+v", res[0])
	}
}

func TestReplaceScript_DeniedUnderOOM(t *testing.T) {
	if !strings.HasPrefix(replaceScript, "#!lua\n") {
		t.Error("script needs a shebang so the server rejects it before the DEL under OOM")
	}
	if strings.Contains(replaceScript, "allow-oom") {
		t.Error("script must not allow OOM")
	}
}

func TestBulk_TransportFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			out := make([]rueidis.RedisResult, len(cmds))
			for i := range cmds {
				out[i] = mock.ErrorResult(context.DeadlineExceeded)
			}
			return out
		})

	s := NewStoreForTest(c)
	_, err := s.Bulk(context.Background(), []db.BulkOp{db.Delete("p:1")})
	if !isDBError(err) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestBulk_LocalRejections(t *testing.T) {
	s := NewStoreForTest(nil) // nothing reaches the client
	res, err := s.Bulk(context.Background(), []db.BulkOp{
		db.Delete(""),
		db.Upload("p:1", nil),
		{Action: "merge", Key: "p:2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, r := range res {
		if r.Succeeded || r.Err == nil {
			t.Errorf("result %d should fail: %+v", i, r)
		}
	}
	if !errors.Is(res[0].Err, db.ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", res[0].Err)
	}
}

func TestBulk_Empty(t *testing.T) {
	s := NewStoreForTest(nil)
	res, err := s.Bulk(context.Background(), nil)
	if err != nil || len(res) != 0 {
		t.Fatalf("Bulk(nil) = %v, %v", res, err)
	}
}

// --- search.go tests ---

func TestFindKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match(
			"FT.SEARCH", "idx", `@x__IndexType:{blog\-post}`,
			"NOCONTENT", "LIMIT", "0", "1000", "DIALECT", "2",
		)).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(2),
			mock.RedisString("p:1"),
			mock.RedisString("p:2"),
		)))

	s := NewStoreForTest(c)
	page, err := s.FindKeys(context.Background(), &db.KeyQuery{
		Index: "idx", TagField: "x__IndexType", TagValue: "blog-post", Limit: 1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 2 || !slices.Equal(page.Keys, []string{"p:1", "p:2"}) {
		t.Errorf("unexpected page: %+v", page)
	}
}

func TestFindKeys_TypeWithSpaceAndCase(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match(
			"FT.SEARCH", "indexsync:content:idx", `@x__IndexType:{Blog\ Post}`,
			"NOCONTENT", "LIMIT", "0", "1000", "DIALECT", "2",
		)).
		Return(mock.Result(mock.RedisArray(mock.RedisInt64(0))))

	_, err := NewStoreForTest(c).FindKeys(context.Background(), &db.KeyQuery{
		Index: "indexsync:content:idx", TagField: schema.TypeFieldName, TagValue: "Blog Post", Limit: 1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFindKeys_Validation(t *testing.T) {
	s := NewStoreForTest(nil)
	bad := []*db.KeyQuery{
		{TagField: "t", Limit: 1},
		{Index: "idx", Limit: 1},
		{Index: "idx", TagField: "t"},
	}
	for i, q := range bad {
		if _, err := s.FindKeys(context.Background(), q); err == nil {
			t.Errorf("query %d: expected error", i)
		}
	}
}

func TestFindKeys_UnknownIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.SEARCH" })).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	_, err := NewStoreForTest(c).FindKeys(context.Background(), &db.KeyQuery{
		Index: "idx", TagField: "t", TagValue: "v", Limit: 10,
	})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestEscapeTag(t *testing.T) {
	tests := []struct{ in, want string }{
		{"article", "article"},
		{"blog post", `blog\ post`},
		{"a.b-c", `a\.b\-c`},
		{"x:y", `x\:y`},
	}
	for _, tc := range tests {
		if got := EscapeTag(tc.in); got != tc.want {
			t.Errorf("EscapeTag(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}
