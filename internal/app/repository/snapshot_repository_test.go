package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const payload = `[{"id":"1","longUrl":"https://example.com","shortCode":"abc123"}]`

// exerciseRepository runs the behaviour every backend shares.
func exerciseRepository(t *testing.T, repo SnapshotRepository) {
	t.Helper()
	ctx := context.Background()

	_, err := repo.Load(ctx)
	require.ErrorIs(t, err, ErrSnapshotNotFound)

	require.NoError(t, repo.Save(ctx, []byte(payload)))
	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(got))

	require.NoError(t, repo.Save(ctx, []byte(`[]`)))
	got, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
}

func TestMemorySnapshotRepository(t *testing.T) {
	repo := NewMemorySnapshotRepository()
	exerciseRepository(t, repo)
	assert.Equal(t, 2, repo.Saves())
}

func TestMemorySnapshotRepository_SeededAndIsolated(t *testing.T) {
	seed := []byte("not valid json")
	repo := NewMemorySnapshotRepositoryWith(seed)
	seed[0] = 'X'

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "not valid json", string(got))

	got[0] = 'Y'
	again, _ := repo.Load(context.Background())
	assert.Equal(t, "not valid json", string(again))
}

func TestMemorySnapshotRepository_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	repo := NewMemorySnapshotRepository()
	assert.ErrorIs(t, repo.Save(ctx, []byte("[]")), context.Canceled)
	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileSnapshotRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "urls.json")
	exerciseRepository(t, NewFileSnapshotRepository(path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestRedisSnapshotRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	exerciseRepository(t, NewRedisSnapshotRepository(client, "urls"))

	raw, err := mr.Get("urls")
	require.NoError(t, err)
	assert.Equal(t, `[]`, raw)
}

func TestRedisSnapshotRepository_BackendDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	_, err := NewRedisSnapshotRepository(client, "urls").Load(context.Background())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrSnapshotNotFound))
}

// --- Postgres fakes ---

type fakeRow struct {
	value string
	err   error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*string)) = r.value
	return nil
}

type fakeQuerier struct {
	rows map[string]string
	sql  []string
	err  error
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.sql = append(q.sql, sql)
	value, ok := q.rows[args[0].(string)]
	if !ok {
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{value: value}
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.sql = append(q.sql, sql)
	if q.err != nil {
		return pgconn.CommandTag{}, q.err
	}
	q.rows[args[0].(string)] = args[1].(string)
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestPostgresSnapshotRepository(t *testing.T) {
	q := &fakeQuerier{rows: map[string]string{}}
	exerciseRepository(t, NewPostgresSnapshotRepository(q, "urls"))

	assert.Contains(t, q.sql[0], "FROM storage_entries")
	assert.Contains(t, q.sql[1], "ON CONFLICT (key)")
}

func TestPostgresSnapshotRepository_ExecError(t *testing.T) {
	boom := errors.New("connection reset")
	q := &fakeQuerier{rows: map[string]string{}, err: boom}

	err := NewPostgresSnapshotRepository(q, "urls").Save(context.Background(), []byte("[]"))
	assert.ErrorIs(t, err, boom)
}

// --- Mongo fakes ---

type fakeCollection struct {
	docs    map[string]bson.M
	upserts int
}

func (c *fakeCollection) FindOne(_ context.Context, filter interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
	id := filter.(bson.M)["_id"].(string)
	doc, ok := c.docs[id]
	if !ok {
		return mongo.NewSingleResultFromDocument(bson.M{}, mongo.ErrNoDocuments, nil)
	}
	return mongo.NewSingleResultFromDocument(doc, nil, nil)
}

func (c *fakeCollection) UpdateOne(_ context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	id := filter.(bson.M)["_id"].(string)
	set := update.(bson.M)["$set"].(bson.M)
	if len(opts) == 0 || opts[0].Upsert == nil || !*opts[0].Upsert {
		return nil, errors.New("expected upsert")
	}
	c.docs[id] = bson.M{"_id": id, "value": set["value"], "updatedAt": set["updatedAt"]}
	c.upserts++
	return &mongo.UpdateResult{UpsertedCount: 1}, nil
}

func TestMongoSnapshotRepository(t *testing.T) {
	coll := &fakeCollection{docs: map[string]bson.M{}}
	repo := NewMongoSnapshotRepository(coll, "urls")
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, []byte(payload)))
	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, payload, string(got))
	assert.Equal(t, 1, coll.upserts)
}
