package mongodb

import (
	// Go Internal Packages
	"context"

	// Local Packages
	models "bgmock-twin/models"

	// External Packages
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ReportRepository struct {
	client     *mongo.Client
	database   string
	collection string
}

func NewReportRepository(client *mongo.Client, database, collection string) *ReportRepository {
	return &ReportRepository{client: client, database: database, collection: collection}
}

// InsertReport upserts a finished load session keyed by its session id
func (r *ReportRepository) InsertReport(ctx context.Context, report models.PerformanceStats) error {
	collection := r.client.Database(r.database).Collection(r.collection)
	opts := options.Replace().SetUpsert(true)
	_, err := collection.ReplaceOne(ctx, bson.M{"_id": report.SessionID}, report, opts)
	if err != nil {
		return err
	}
	return nil
}
