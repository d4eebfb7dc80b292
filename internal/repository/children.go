package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dokuflow/document-pipeline/internal/models"
)

// Child records are always replaced wholesale inside the completion
// transaction. Delete-then-insert keeps reprocessing idempotent.

func replaceLineItems(ctx context.Context, tx pgx.Tx, documentID string, items []models.LineItem) error {
	if _, err := tx.Exec(ctx, `DELETE FROM line_items WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to clear line items: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(
			`INSERT INTO line_items (document_id, sort_order, description, quantity, unit_price, line_total)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			documentID, item.SortOrder, item.Description, item.Quantity, item.UnitPrice, item.LineTotal,
		)
	}
	return sendBatch(ctx, tx, batch, "line items")
}

func replaceTransactions(ctx context.Context, tx pgx.Tx, documentID string, txs []models.BankTransaction) error {
	if _, err := tx.Exec(ctx, `DELETE FROM bank_transactions WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to clear bank transactions: %w", err)
	}
	if len(txs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, bt := range txs {
		batch.Queue(
			`INSERT INTO bank_transactions (document_id, sort_order, tx_date, description, amount, balance)
			 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)`,
			documentID, bt.SortOrder, bt.Date, bt.Description, bt.Amount, bt.Balance,
		)
	}
	return sendBatch(ctx, tx, batch, "bank transactions")
}

func replaceChunks(ctx context.Context, tx pgx.Tx, documentID string, chunks []models.EmbeddingChunk) error {
	if _, err := tx.Exec(ctx, `DELETE FROM embedding_chunks WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to clear embedding chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		batch.Queue(
			`INSERT INTO embedding_chunks (document_id, chunk_index, chunk_text, embedding)
			 VALUES ($1, $2, $3, $4)`,
			documentID, chunk.ChunkIndex, chunk.Text, chunk.Vector,
		)
	}
	return sendBatch(ctx, tx, batch, "embedding chunks")
}

func sendBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, what string) error {
	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert %s: %w", what, err)
		}
	}
	return results.Close()
}
