package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	mongoclient "github.com/retail-platform/inventory-service/pkg/mongodb"
)

// TransactionManager runs functions inside a Mongo multi-document
// transaction. Requires a replica set; standalone servers reject
// transactions.
type TransactionManager struct {
	client *mongoclient.Client
}

func NewTransactionManager(client *mongoclient.Client) *TransactionManager {
	return &TransactionManager{client: client}
}

func (t *TransactionManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return t.client.WithTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		return fn(sessCtx)
	})
}
