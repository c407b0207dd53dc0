package dataset

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/scoreslides/pkg/buildinfo"
	"github.com/matzehuels/scoreslides/pkg/errors"
)

// Default MongoDB names used when MongoSource leaves them empty.
const (
	DefaultDatabase   = "scoreslides"
	DefaultCollection = "scores"
)

// MongoSource reads records from a MongoDB collection. Documents are read in
// ascending "row" order.
type MongoSource struct {
	URI        string
	Database   string
	Collection string
	Timeout    time.Duration
}

// Name implements Source.
func (s MongoSource) Name() string { return "mongo" }

// scoreDocument is the stored shape of one record.
type scoreDocument struct {
	Row               int     `bson:"row"`
	Gender            string  `bson:"gender"`
	RaceEthnicity     string  `bson:"race_ethnicity"`
	ParentalEducation string  `bson:"parental_education"`
	Lunch             string  `bson:"lunch"`
	TestPreparation   string  `bson:"test_preparation"`
	Math              float64 `bson:"math_score"`
	Reading           float64 `bson:"reading_score"`
	Writing           float64 `bson:"writing_score"`
}

func toDocument(r Record) scoreDocument {
	return scoreDocument{
		Row:               r.ID,
		Gender:            r.Gender,
		RaceEthnicity:     r.RaceEthnicity,
		ParentalEducation: r.ParentalEducation,
		Lunch:             r.Lunch,
		TestPreparation:   r.TestPreparation,
		Math:              r.Math,
		Reading:           r.Reading,
		Writing:           r.Writing,
	}
}

func (d scoreDocument) record() Record {
	return Record{
		ID:                d.Row,
		Gender:            d.Gender,
		RaceEthnicity:     d.RaceEthnicity,
		ParentalEducation: d.ParentalEducation,
		Lunch:             d.Lunch,
		TestPreparation:   d.TestPreparation,
		Math:              d.Math,
		Reading:           d.Reading,
		Writing:           d.Writing,
	}
}

func (s MongoSource) collection(ctx context.Context) (*mongo.Client, *mongo.Collection, error) {
	if s.URI == "" {
		return nil, nil, errors.New(errors.ErrCodeInvalidConfig, "mongo source requires a uri")
	}
	opts := options.Client().ApplyURI(s.URI).SetAppName(buildinfo.UserAgent())
	if s.Timeout > 0 {
		opts.SetConnectTimeout(s.Timeout).SetServerSelectionTimeout(s.Timeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	db, coll := s.Database, s.Collection
	if db == "" {
		db = DefaultDatabase
	}
	if coll == "" {
		coll = DefaultCollection
	}
	return client, client.Database(db).Collection(coll), nil
}

// Load implements Source.
func (s MongoSource) Load(ctx context.Context) ([]Record, error) {
	client, coll, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Disconnect(context.WithoutCancel(ctx)) }()

	cur, err := coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "row", Value: 1}}))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "find in %s", coll.Name())
	}
	var docs []scoreDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "decode %s", coll.Name())
	}
	records := make([]Record, len(docs))
	for i, d := range docs {
		records[i] = d.record()
	}
	return records, nil
}

// SaveMongo replaces the collection contents with records.
func SaveMongo(ctx context.Context, src MongoSource, records []Record) error {
	client, coll, err := src.collection(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Disconnect(context.WithoutCancel(ctx)) }()

	if err := coll.Drop(ctx); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	docs := make([]interface{}, len(records))
	for i, r := range records {
		r.ID = i
		docs[i] = toDocument(r)
	}
	_, err = coll.InsertMany(ctx, docs)
	return err
}
