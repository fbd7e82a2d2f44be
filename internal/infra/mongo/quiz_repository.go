package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"company-quiz-service/internal/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// DefaultCollection holds the quiz documents.
const DefaultCollection = "quizzes"

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// quizDocument adds the native key to the domain quiz.
type quizDocument struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	domain.Quiz `bson:",inline"`
}

func (d quizDocument) toDomain() domain.Quiz {
	quiz := d.Quiz
	quiz.ID = d.ID.Hex()
	return quiz
}

// QuizRepository stores quizzes as documents keyed by ObjectID. Every method
// that takes an id rejects malformed ids with domain.ErrInvalidQuizID before
// touching the collection.
type QuizRepository struct {
	col *mongo.Collection
}

func NewQuizRepository(db *mongo.Database, collection string) *QuizRepository {
	if collection == "" {
		collection = DefaultCollection
	}
	return &QuizRepository{col: db.Collection(collection)}
}

// EnsureIndexes creates the indexes used by company listings.
func (r *QuizRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "company_id", Value: 1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create quiz indexes: %w", err)
	}
	return nil
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return r.find(ctx, quizID)
}

func (r *QuizRepository) GetQuizExcludingAnswers(ctx context.Context, quizID string) (domain.Quiz, error) {
	return r.find(ctx, quizID, options.FindOne().SetProjection(bson.M{"correct_answers": 0}))
}

func (r *QuizRepository) find(ctx context.Context, quizID string, opts ...options.Lister[options.FindOneOptions]) (domain.Quiz, error) {
	oid, err := parseID(quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	var doc quizDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": oid}, opts...).Decode(&doc); err != nil {
		return domain.Quiz{}, mapError("find quiz", err)
	}
	return doc.toDomain(), nil
}

func (r *QuizRepository) CreateQuiz(ctx context.Context, quiz domain.Quiz) (domain.Quiz, error) {
	doc := quizDocument{ID: bson.NewObjectID(), Quiz: quiz}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return domain.Quiz{}, fmt.Errorf("insert quiz: %w", err)
	}
	return doc.toDomain(), nil
}

// UpdateQuiz replaces the whole document and returns it as stored.
func (r *QuizRepository) UpdateQuiz(ctx context.Context, quizID string, quiz domain.Quiz) (domain.Quiz, error) {
	oid, err := parseID(quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	opts := options.FindOneAndReplace().SetReturnDocument(options.After)

	var doc quizDocument
	err = r.col.FindOneAndReplace(ctx, bson.M{"_id": oid}, quizDocument{Quiz: quiz}, opts).Decode(&doc)
	if err != nil {
		return domain.Quiz{}, mapError("replace quiz", err)
	}
	return doc.toDomain(), nil
}

func (r *QuizRepository) DeleteQuiz(ctx context.Context, quizID string) error {
	oid, err := parseID(quizID)
	if err != nil {
		return err
	}
	result, err := r.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}

// ListQuizzes pages through quizzes in _id order.
func (r *QuizRepository) ListQuizzes(ctx context.Context, filter domain.QuizFilter, page, perPage int) (domain.QuizPage, error) {
	query := quizQuery(filter)

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return domain.QuizPage{}, fmt.Errorf("count quizzes: %w", err)
	}

	cursor, err := r.col.Find(ctx, query, pageOptions(page, perPage))
	if err != nil {
		return domain.QuizPage{}, fmt.Errorf("find quizzes: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []quizDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return domain.QuizPage{}, fmt.Errorf("decode quizzes: %w", err)
	}
	quizzes := make([]domain.Quiz, 0, len(docs))
	for _, doc := range docs {
		quizzes = append(quizzes, doc.toDomain())
	}

	return domain.QuizPage{
		Documents:  quizzes,
		Page:       page,
		PerPage:    perPage,
		TotalPages: domain.TotalPages(total, perPage),
		TotalCount: total,
	}, nil
}

func (r *QuizRepository) ListCompanyQuizzes(ctx context.Context, companyID int64) ([]domain.QuizSummary, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1, "name": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.col.Find(ctx, quizQuery(domain.QuizFilter{CompanyID: companyID}), opts)
	if err != nil {
		return nil, fmt.Errorf("find company quizzes: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID   bson.ObjectID `bson:"_id"`
		Name string        `bson:"name"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode company quizzes: %w", err)
	}
	out := make([]domain.QuizSummary, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domain.QuizSummary{ID: doc.ID.Hex(), Name: doc.Name})
	}
	return out, nil
}

// QuizSchedules loads id, name and frequency of the quizzes among ids.
// Malformed ids are skipped.
func (r *QuizRepository) QuizSchedules(ctx context.Context, quizIDs []string) ([]domain.QuizSchedule, error) {
	query, ok := scheduleQuery(quizIDs)
	if !ok {
		return nil, nil
	}
	cursor, err := r.col.Find(ctx, query, options.Find().SetProjection(scheduleProjection))
	if err != nil {
		return nil, fmt.Errorf("find quiz schedules: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID                  bson.ObjectID `bson:"_id"`
		domain.QuizSchedule `bson:",inline"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode quiz schedules: %w", err)
	}
	out := make([]domain.QuizSchedule, 0, len(docs))
	for _, doc := range docs {
		schedule := doc.QuizSchedule
		schedule.ID = doc.ID.Hex()
		out = append(out, schedule)
	}
	return out, nil
}

var scheduleProjection = bson.M{"_id": 1, "name": 1, "frequency": 1}

// scheduleQuery matches the well-formed ids. It reports false when none are left.
func scheduleQuery(quizIDs []string) (bson.M, bool) {
	oids := make([]bson.ObjectID, 0, len(quizIDs))
	for _, id := range quizIDs {
		oid, err := parseID(id)
		if err != nil {
			continue
		}
		oids = append(oids, oid)
	}
	if len(oids) == 0 {
		return nil, false
	}
	return bson.M{"_id": bson.M{"$in": oids}}, true
}

// pageOptions sorts by _id and selects one page.
func pageOptions(page, perPage int) *options.FindOptionsBuilder {
	return options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64((page - 1) * perPage)).
		SetLimit(int64(perPage))
}

func quizQuery(filter domain.QuizFilter) bson.M {
	query := bson.M{}
	if filter.CompanyID != 0 {
		query["company_id"] = filter.CompanyID
	}
	return query
}

func parseID(quizID string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(quizID)
	if err != nil {
		return bson.ObjectID{}, domain.ErrInvalidQuizID
	}
	return oid, nil
}

func mapError(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrQuizNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
