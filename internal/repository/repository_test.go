package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/TimUdinusYes/backend/internal/database"
	"github.com/TimUdinusYes/backend/internal/migration"
	"github.com/TimUdinusYes/backend/internal/model"
	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDBURL(name string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		getEnvOrDefault("TEST_DB_USER", "postgres"),
		getEnvOrDefault("TEST_DB_PASSWORD", "postgres"),
		getEnvOrDefault("TEST_DB_HOST", "127.0.0.1"),
		getEnvOrDefault("TEST_DB_PORT", "5432"),
		name,
	)
}

func setupTestDB(t *testing.T) *sql.DB {
	ctx := context.Background()
	dbName := fmt.Sprintf("test_learning_%d", time.Now().UnixNano())

	// Conecta ao postgres para criar o banco de teste
	adminDB, err := database.Connect(ctx, database.Config{URL: testDBURL("postgres"), PingTimeout: 2 * time.Second})
	if err != nil {
		t.Skipf("Pulando teste: não foi possível conectar ao PostgreSQL: %v", err)
	}
	defer adminDB.Close()

	if _, err := adminDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE %s", dbName)); err != nil {
		t.Fatalf("Erro ao criar banco de teste: %v", err)
	}

	testDB, err := database.Connect(ctx, database.Config{URL: testDBURL(dbName)})
	if err != nil {
		t.Fatalf("Erro ao conectar ao banco de teste: %v", err)
	}

	if err := migration.NewMigrator(testDB).Run(ctx); err != nil {
		testDB.Close()
		t.Fatalf("Erro ao executar migrações: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
		adminDB, err := database.Connect(context.Background(), database.Config{URL: testDBURL("postgres")})
		if err == nil {
			adminDB.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbName))
			adminDB.Close()
		}
	})

	return testDB
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func seedNodes(t *testing.T, db *sql.DB, userID string, titles ...string) (*model.Topic, []model.Node) {
	ctx := context.Background()
	topic, err := NewTopicRepository(db).Create(ctx, "Web Development", "", userID)
	require.NoError(t, err)

	nodes := NewNodeRepository(db)
	var created []model.Node
	for _, title := range titles {
		n, err := nodes.Create(ctx, topic.ID, title, "about "+title, userID)
		require.NoError(t, err)
		created = append(created, *n)
	}
	return topic, created
}

func TestTopicAndNodeRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	topic, created := seedNodes(t, db, "user-1", "HTML", "CSS")

	got, err := NewTopicRepository(db).Get(ctx, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, "Web Development", got.Title)

	_, err = NewTopicRepository(db).Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, model.ErrNotFound)

	nodes := NewNodeRepository(db)
	listed, err := nodes.ListByTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 2)

	found, err := nodes.GetMany(ctx, []string{created[0].ID, uuid.NewString()})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, "HTML", found[created[0].ID].Title)

	assert.ErrorIs(t, nodes.Delete(ctx, created[0].ID, "user-2"), model.ErrForbidden)
	require.NoError(t, nodes.Delete(ctx, created[0].ID, "user-1"))
	assert.ErrorIs(t, nodes.Delete(ctx, created[0].ID, "user-1"), model.ErrNotFound)
}

func TestWorkflowGraphRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	_, nodes := seedNodes(t, db, "user-1", "HTML", "CSS", "JavaScript")
	repo := NewWorkflowRepository(db)

	w, err := repo.Create(ctx, "user-1", "Frontend", "")
	require.NoError(t, err)

	valid := true
	graph := []model.WorkflowNode{
		{NodeID: nodes[0].ID, SortOrder: 0},
		{NodeID: nodes[1].ID, SortOrder: 1, PositionX: 120},
		{NodeID: nodes[2].ID, SortOrder: 2, PositionX: 240},
	}
	edges := []model.WorkflowEdge{
		{ID: "reactflow-e1", SourceNodeID: nodes[0].ID, TargetNodeID: nodes[1].ID, IsValid: &valid, ValidationReason: "basics first"},
		{SourceNodeID: nodes[1].ID, TargetNodeID: nodes[2].ID},
	}

	assert.ErrorIs(t, repo.ReplaceGraph(ctx, w.ID, "user-2", graph, edges), model.ErrForbidden)
	require.NoError(t, repo.ReplaceGraph(ctx, w.ID, "user-1", graph, edges))

	got, err := repo.Get(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, got.Nodes, 3)
	assert.Equal(t, "HTML", got.Nodes[0].Title)
	require.Len(t, got.Edges, 2)

	byTarget := map[string]model.WorkflowEdge{}
	for _, e := range got.Edges {
		_, err := uuid.Parse(e.ID)
		assert.NoError(t, err, "edge ids are normalized to UUIDs")
		byTarget[e.TargetTitle] = e
	}
	assert.Equal(t, "HTML", byTarget["CSS"].SourceTitle)
	assert.NotEqual(t, "reactflow-e1", byTarget["CSS"].ID)
	assert.Nil(t, byTarget["CSS"].IsValid, "verdicts sent by the client are ignored")
	assert.Empty(t, byTarget["CSS"].ValidationReason)
	assert.Nil(t, byTarget["JavaScript"].IsValid)

	n, err := repo.AnnotateEdges(ctx, "user-1", nodes[1].ID, nodes[2].ID, false, "needs more practice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.AnnotateEdges(ctx, "user-2", nodes[1].ID, nodes[2].ID, true, "")
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err = repo.Get(ctx, w.ID)
	require.NoError(t, err)
	for _, e := range got.Edges {
		if e.TargetNodeID == nodes[2].ID {
			require.NotNil(t, e.IsValid)
			assert.False(t, *e.IsValid)
			assert.Equal(t, "needs more practice", e.ValidationReason)
		}
	}

	// Salvar o grafo de novo mantém o veredito gravado, não o enviado
	forged := true
	edges[1].IsValid, edges[1].ValidationReason = &forged, "trust me"
	require.NoError(t, repo.ReplaceGraph(ctx, w.ID, "user-1", graph, edges))
	got, err = repo.Get(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, got.Edges, 2)
	for _, e := range got.Edges {
		if e.TargetNodeID == nodes[2].ID {
			require.NotNil(t, e.IsValid)
			assert.False(t, *e.IsValid)
			assert.Equal(t, "needs more practice", e.ValidationReason)
		}
	}

	// Substituir por um grafo vazio remove tudo
	require.NoError(t, repo.ReplaceGraph(ctx, w.ID, "user-1", nil, nil))
	got, err = repo.Get(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Nodes)
	assert.Empty(t, got.Edges)

	list, err := repo.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, repo.Delete(ctx, w.ID, "user-2"), model.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, w.ID, "user-1"))
	_, err = repo.Get(ctx, w.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestValidationRepositoryMissingPair(t *testing.T) {
	db := setupTestDB(t)

	v, err := NewValidationRepository(db).Get(context.Background(), "html", "css")
	require.NoError(t, err)
	assert.Nil(t, v)
}

// O último veredito gravado para um par é sempre o que volta na leitura.
func TestProperty_ValidationUpsertLastWriterWins(t *testing.T) {
	db := setupTestDB(t)
	repo := NewValidationRepository(db)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 25
	properties := gopter.NewProperties(parameters)

	properties.Property("get returns the last upsert", prop.ForAll(
		func(source, target string, verdicts []bool) bool {
			if len(verdicts) == 0 {
				return true
			}
			for i, valid := range verdicts {
				v := model.NodePairValidation{
					SourceName: source,
					TargetName: target,
					IsValid:    valid,
					Reason:     fmt.Sprintf("round %d", i),
				}
				if !valid {
					rec := "study " + source
					v.Recommendation = &rec
				}
				if err := repo.Upsert(ctx, v); err != nil {
					return false
				}
			}

			got, err := repo.Get(ctx, source, target)
			if err != nil || got == nil {
				return false
			}
			last := verdicts[len(verdicts)-1]
			if got.IsValid != last || got.Reason != fmt.Sprintf("round %d", len(verdicts)-1) {
				return false
			}
			return (got.Recommendation == nil) == last
		},
		gen.Identifier(),
		gen.Identifier(),
		gen.SliceOfN(4, gen.Bool()),
	))

	properties.TestingRun(t)
}

func seedMaterial(t *testing.T, db *sql.DB, pages ...string) string {
	ctx := context.Background()
	id := uuid.NewString()
	_, err := db.ExecContext(ctx, `INSERT INTO materials (id, title) VALUES ($1, $2)`, id, "Intro to CSS")
	require.NoError(t, err)
	for i, content := range pages {
		_, err := db.ExecContext(ctx, `INSERT INTO material_pages (material_id, page_number, content) VALUES ($1, $2, $3)`, id, i+1, content)
		require.NoError(t, err)
	}
	return id
}

func TestQuizRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewQuizRepository(db)
	materialID := seedMaterial(t, db, "Selectors pick elements.")

	page, err := repo.GetPage(ctx, materialID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Selectors pick elements.", page.Content)

	_, err = repo.GetPage(ctx, materialID, 2)
	assert.ErrorIs(t, err, model.ErrNotFound)

	q, err := repo.GetQuestion(ctx, materialID, 1)
	require.NoError(t, err)
	assert.Nil(t, q)

	first, err := repo.SaveQuestion(ctx, model.QuizQuestion{
		MaterialID:   materialID,
		PageNumber:   1,
		Question:     "What do selectors do?",
		Options:      []string{"Pick elements", "Store data", "Send requests", "Compile code"},
		CorrectIndex: 0,
		Explanation:  "They pick elements.",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Pick elements", "Store data", "Send requests", "Compile code"}, first.Options)

	// Uma segunda gravação concorrente não substitui a primeira
	second, err := repo.SaveQuestion(ctx, model.QuizQuestion{
		MaterialID:   materialID,
		PageNumber:   1,
		Question:     "Another question",
		Options:      []string{"a", "b", "c", "d"},
		CorrectIndex: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "What do selectors do?", second.Question)
	assert.Equal(t, 0, second.CorrectIndex)
}

func TestProfileRepositoryMergesScores(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewProfileRepository(db)

	scores, err := repo.QuizScores(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, scores)

	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.RecordQuizScore(ctx, "user-1", "m1_1", model.QuizScore{Score: 1, Selected: 2, AnsweredAt: at}))
	require.NoError(t, repo.RecordQuizScore(ctx, "user-1", "m1_2", model.QuizScore{Score: 0, Selected: 1, AnsweredAt: at}))
	require.NoError(t, repo.RecordQuizScore(ctx, "user-1", "m1_1", model.QuizScore{Score: 0, Selected: 3, AnsweredAt: at}))

	scores, err = repo.QuizScores(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, 3, scores["m1_1"].Selected)
	assert.Equal(t, 0, scores["m1_1"].Score)
	assert.Equal(t, 1, scores["m1_2"].Selected)
	assert.True(t, scores["m1_2"].AnsweredAt.Equal(at))
}

func TestCredentialRepositoryKeepsRefreshToken(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewCredentialRepository(db)

	_, err := repo.Get(ctx, "user-1")
	assert.ErrorIs(t, err, model.ErrNoCalendarToken)

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, repo.Upsert(ctx, model.CalendarCredential{
		UserID:       "user-1",
		AccessToken:  []byte("sealed-access-1"),
		RefreshToken: []byte("sealed-refresh"),
		Expiry:       expiry,
	}))

	// Renovação sem refresh token preserva o anterior
	require.NoError(t, repo.Upsert(ctx, model.CalendarCredential{
		UserID:      "user-1",
		AccessToken: []byte("sealed-access-2"),
	}))

	c, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("sealed-access-2"), c.AccessToken)
	assert.Equal(t, []byte("sealed-refresh"), c.RefreshToken)
	assert.True(t, c.Expiry.IsZero())
}
