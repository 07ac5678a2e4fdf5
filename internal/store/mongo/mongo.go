// Package mongostore stores users, conversations and interpretations in MongoDB.
package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/microscanai/microscan/internal/conversation"
	"github.com/microscanai/microscan/internal/store"
)

const (
	usersCollection           = "users"
	conversationsCollection   = "conversations"
	interpretationsCollection = "interpretations"
)

// Open connects to MongoDB and verifies the connection.
func Open(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb uri is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// Store implements store.Store over one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New returns a Store over the named database of an open client.
func New(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

func (s *Store) Users() store.Users {
	return &users{c: s.db.Collection(usersCollection)}
}

func (s *Store) Conversations() store.Conversations {
	return &conversations{c: s.db.Collection(conversationsCollection)}
}

func (s *Store) Interpretations() store.Interpretations {
	return &interpretations{c: s.db.Collection(interpretationsCollection)}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the secondary indexes used by list queries.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.db.Collection(conversationsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "updatedAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("conversations index: %w", err)
	}
	if _, err := s.db.Collection(interpretationsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: 1}},
	}); err != nil {
		return fmt.Errorf("interpretations index: %w", err)
	}
	return nil
}

// --- Users ---

type userDoc struct {
	ID             string    `bson:"_id"`
	DisplayName    string    `bson:"userName"`
	LastScanDate   string    `bson:"lastScanDate"`
	ScansToday     int       `bson:"scansToday"`
	CompletedScans int       `bson:"completedScans"`
	ScansRemaining int       `bson:"scansRemaining"`
	CreatedAt      time.Time `bson:"createdAt"`
	UpdatedAt      time.Time `bson:"updatedAt"`
}

func (d userDoc) record() conversation.UsageRecord {
	return conversation.UsageRecord{
		UserID:         d.ID,
		DisplayName:    d.DisplayName,
		LastScanDate:   d.LastScanDate,
		ScansToday:     d.ScansToday,
		CompletedScans: d.CompletedScans,
		ScansRemaining: d.ScansRemaining,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

type users struct{ c *mongo.Collection }

func (u *users) Get(ctx context.Context, userID string) (conversation.UsageRecord, error) {
	var doc userDoc
	err := u.c.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return conversation.UsageRecord{}, store.ErrNotFound
	}
	if err != nil {
		return conversation.UsageRecord{}, err
	}
	return doc.record(), nil
}

func (u *users) Create(ctx context.Context, rec conversation.UsageRecord) (conversation.UsageRecord, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := userDoc{
		ID:             rec.UserID,
		DisplayName:    rec.DisplayName,
		LastScanDate:   rec.LastScanDate,
		ScansToday:     rec.ScansToday,
		CompletedScans: rec.CompletedScans,
		ScansRemaining: rec.ScansRemaining,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := u.c.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return conversation.UsageRecord{}, store.ErrAlreadyExists
		}
		return conversation.UsageRecord{}, err
	}
	return doc.record(), nil
}

func (u *users) ReserveScan(ctx context.Context, userID, day string, limit int) (conversation.UsageRecord, error) {
	if limit <= 0 {
		return conversation.UsageRecord{}, store.ErrQuotaExceeded
	}
	filter := bson.M{
		"_id": userID,
		"$or": bson.A{
			bson.M{"lastScanDate": bson.M{"$ne": day}},
			bson.M{"scansToday": bson.M{"$lt": limit}},
		},
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "scansToday", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$eq", Value: bson.A{"$lastScanDate", day}}},
				bson.D{{Key: "$add", Value: bson.A{"$scansToday", 1}}},
				1,
			}}}},
			{Key: "lastScanDate", Value: day},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	}
	var doc userDoc
	err := u.c.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err == nil {
		return doc.record(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return conversation.UsageRecord{}, err
	}
	n, err := u.c.CountDocuments(ctx, bson.M{"_id": userID})
	if err != nil {
		return conversation.UsageRecord{}, err
	}
	if n == 0 {
		return conversation.UsageRecord{}, store.ErrNotFound
	}
	return conversation.UsageRecord{}, store.ErrQuotaExceeded
}

func (u *users) ReleaseScan(ctx context.Context, userID, day string) error {
	_, err := u.c.UpdateOne(ctx,
		bson.M{"_id": userID, "lastScanDate": day, "scansToday": bson.M{"$gt": 0}},
		bson.M{
			"$inc": bson.M{"scansToday": -1},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		})
	return err
}

func (u *users) CompleteScan(ctx context.Context, userID string) error {
	res, err := u.c.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{
			"$inc": bson.M{"completedScans": 1, "scansRemaining": -1},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- Conversations ---

// messageDoc keeps structured content as its JSON text so it round-trips
// without a fixed schema. Older documents may hold content as an embedded
// document or array, so it is read as a raw value.
type messageDoc struct {
	Role       string        `bson:"role"`
	Content    bson.RawValue `bson:"content"`
	Structured bool          `bson:"structured,omitempty"`
	FileURLs   []string      `bson:"fileUrls,omitempty"`
}

// conversationDoc.Revision is 0 for documents written before revisions existed.
type conversationDoc struct {
	ID                string       `bson:"_id"`
	UserID            string       `bson:"userId"`
	Messages          []messageDoc `bson:"messages"`
	ContinuationToken string       `bson:"openaiResponseId"`
	Revision          int64        `bson:"revision"`
	CreatedAt         time.Time    `bson:"createdAt"`
	UpdatedAt         time.Time    `bson:"updatedAt"`
}

func toMessageDocs(msgs []conversation.Message) []messageDoc {
	out := make([]messageDoc, 0, len(msgs))
	for _, m := range msgs {
		t, data, _ := bson.MarshalValue(m.Content.Text())
		out = append(out, messageDoc{
			Role:       m.Role,
			Content:    bson.RawValue{Type: t, Value: data},
			Structured: m.Content.IsStructured(),
			FileURLs:   m.FileURLs,
		})
	}
	return out
}

func decodeContent(raw bson.RawValue, structured bool) conversation.Content {
	switch raw.Type {
	case 0, bson.TypeNull, bson.TypeUndefined:
		return conversation.TextContent("")
	case bson.TypeString:
		s := raw.StringValue()
		if structured {
			return conversation.StructuredContent(json.RawMessage(s))
		}
		return conversation.TextContent(s)
	}
	data, err := bson.MarshalExtJSON(bson.D{{Key: "v", Value: raw}}, false, false)
	if err != nil {
		return conversation.TextContent(raw.String())
	}
	var wrapped struct {
		V json.RawMessage `json:"v"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return conversation.TextContent(raw.String())
	}
	return conversation.StructuredContent(wrapped.V)
}

func (d conversationDoc) conversation() conversation.Conversation {
	msgs := make([]conversation.Message, 0, len(d.Messages))
	for _, m := range d.Messages {
		msgs = append(msgs, conversation.Message{
			Role:     m.Role,
			Content:  decodeContent(m.Content, m.Structured),
			FileURLs: m.FileURLs,
		})
	}
	return conversation.Conversation{
		ID:                d.ID,
		UserID:            d.UserID,
		Messages:          msgs,
		ContinuationToken: d.ContinuationToken,
		Revision:          d.Revision,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

type conversations struct{ c *mongo.Collection }

func (c *conversations) Get(ctx context.Context, conversationID string) (conversation.Conversation, error) {
	var doc conversationDoc
	err := c.c.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return conversation.Conversation{}, store.ErrNotFound
	}
	if err != nil {
		return conversation.Conversation{}, err
	}
	return doc.conversation(), nil
}

func (c *conversations) Save(ctx context.Context, conv conversation.Conversation, expectedRevision int64) (conversation.Conversation, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	if expectedRevision == 0 {
		doc := conversationDoc{
			ID:                conv.ID,
			UserID:            conv.UserID,
			Messages:          toMessageDocs(conv.Messages),
			ContinuationToken: conv.ContinuationToken,
			Revision:          1,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		_, err := c.c.InsertOne(ctx, doc)
		if err == nil {
			return doc.conversation(), nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return conversation.Conversation{}, err
		}
		return c.adoptUnversioned(ctx, conv, now)
	}

	var doc conversationDoc
	err := c.c.FindOneAndUpdate(ctx,
		bson.M{"_id": conv.ID, "revision": expectedRevision},
		bson.M{
			"$set": bson.M{
				"messages":         toMessageDocs(conv.Messages),
				"openaiResponseId": conv.ContinuationToken,
				"updatedAt":        now,
			},
			"$inc": bson.M{"revision": 1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return conversation.Conversation{}, store.ErrRevisionConflict
	}
	if err != nil {
		return conversation.Conversation{}, err
	}
	return doc.conversation(), nil
}

// adoptUnversioned overwrites a document that has no revision yet and
// starts its revision history at 1.
func (c *conversations) adoptUnversioned(ctx context.Context, conv conversation.Conversation, now time.Time) (conversation.Conversation, error) {
	var doc conversationDoc
	err := c.c.FindOneAndUpdate(ctx,
		bson.M{
			"_id": conv.ID,
			"$or": bson.A{
				bson.M{"revision": bson.M{"$exists": false}},
				bson.M{"revision": 0},
			},
		},
		bson.M{"$set": bson.M{
			"messages":         toMessageDocs(conv.Messages),
			"openaiResponseId": conv.ContinuationToken,
			"revision":         int64(1),
			"updatedAt":        now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return conversation.Conversation{}, store.ErrRevisionConflict
	}
	if err != nil {
		return conversation.Conversation{}, err
	}
	return doc.conversation(), nil
}

func (c *conversations) ListByUser(ctx context.Context, userID string, limit int) ([]conversation.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := c.c.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]conversation.Conversation, 0)
	for cursor.Next(ctx) {
		var doc conversationDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.conversation())
	}
	return out, cursor.Err()
}

// --- Interpretations ---

type artifactDoc struct {
	ID                   string    `bson:"_id"`
	UserID               string    `bson:"userId"`
	URLs                 []string  `bson:"urls"`
	InterpretationResult string    `bson:"interpretationResult"`
	PromptMessage        string    `bson:"promptMessage"`
	ConversationID       string    `bson:"conversationId"`
	FilesCount           int       `bson:"filesCount"`
	AnalysisType         string    `bson:"analysisType"`
	CreatedAt            time.Time `bson:"createdAt"`
}

type interpretations struct{ c *mongo.Collection }

func (i *interpretations) Create(ctx context.Context, a conversation.AnalysisArtifact) (conversation.AnalysisArtifact, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	doc := artifactDoc{
		ID:                   a.ID,
		UserID:               a.UserID,
		URLs:                 a.URLs,
		InterpretationResult: a.InterpretationResult,
		PromptMessage:        a.PromptMessage,
		ConversationID:       a.ConversationID,
		FilesCount:           a.FilesCount,
		AnalysisType:         a.AnalysisType,
		CreatedAt:            a.CreatedAt,
	}
	if _, err := i.c.InsertOne(ctx, doc); err != nil {
		return conversation.AnalysisArtifact{}, err
	}
	return a, nil
}

func (i *interpretations) ListByConversation(ctx context.Context, conversationID string) ([]conversation.AnalysisArtifact, error) {
	cursor, err := i.c.Find(ctx, bson.M{"conversationId": conversationID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	out := make([]conversation.AnalysisArtifact, 0)
	for cursor.Next(ctx) {
		var doc artifactDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, conversation.AnalysisArtifact{
			ID:                   doc.ID,
			UserID:               doc.UserID,
			URLs:                 doc.URLs,
			InterpretationResult: doc.InterpretationResult,
			PromptMessage:        doc.PromptMessage,
			ConversationID:       doc.ConversationID,
			FilesCount:           doc.FilesCount,
			AnalysisType:         doc.AnalysisType,
			CreatedAt:            doc.CreatedAt,
		})
	}
	return out, cursor.Err()
}
