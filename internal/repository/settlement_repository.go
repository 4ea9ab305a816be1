package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/doanquockiet/be-exe-cho-do-cu/internal/domain"
)

type settlementRepository struct {
	collection *mongo.Collection
}

func NewSettlementRepository(db *mongo.Database) SettlementRepository {
	return &settlementRepository{collection: db.Collection("settlements")}
}

func (r *settlementRepository) GetByTxnRef(ctx context.Context, txnRef string) (*domain.SettlementRecord, error) {
	var rec domain.SettlementRecord
	err := r.collection.FindOne(ctx, bson.M{"txn_ref": txnRef}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get settlement record: %w", err)
	}
	return &rec, nil
}

func (r *settlementRepository) Create(ctx context.Context, rec *domain.SettlementRecord) error {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	rec.SettledAt = time.Now()

	_, err := r.collection.InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return ErrAlreadySettled
	}
	if err != nil {
		return fmt.Errorf("failed to insert settlement record: %w", err)
	}
	return nil
}
