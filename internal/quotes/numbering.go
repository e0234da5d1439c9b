package quotes

import (
	"fmt"
	"strings"
	"time"

	"go-sales-crm/internal/models"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// NumberGenerator allocates human-readable quote numbers of the form
// Q-YYYYMMDD-<suffix>. tx is the transaction that will insert the quote.
type NumberGenerator interface {
	Next(tx *gorm.DB, at time.Time) (string, error)
}

func dayStamp(at time.Time) string {
	return at.UTC().Format("20060102")
}

// SequenceNumbers numbers quotes from a per-day counter row: Q-20261018-000042.
type SequenceNumbers struct{}

func (SequenceNumbers) Next(tx *gorm.DB, at time.Time) (string, error) {
	day := dayStamp(at)

	// Increment first so the row write lock is held until the quote commits.
	res := tx.Model(&models.QuoteSequence{}).
		Where("seq_day = ?", day).
		Update("counter", gorm.Expr("counter + 1"))
	if res.Error != nil {
		return "", fmt.Errorf("bump quote sequence: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// first quote of the day; a concurrent insert fails on the primary key and is retried
		if err := tx.Create(&models.QuoteSequence{SeqDay: day, Counter: 1}).Error; err != nil {
			return "", fmt.Errorf("start quote sequence: %w", err)
		}
	}

	var seq models.QuoteSequence
	if err := tx.Where("seq_day = ?", day).First(&seq).Error; err != nil {
		return "", fmt.Errorf("read quote sequence: %w", err)
	}
	return fmt.Sprintf("Q-%s-%06d", day, seq.Counter), nil
}

// SnowflakeNumbers derives the suffix from a snowflake id, unique per node
// without a shared counter: Q-20261018-3F1K2W9ZQ4G0.
type SnowflakeNumbers struct {
	node *snowflake.Node
}

func NewSnowflakeNumbers(nodeID int64) (*SnowflakeNumbers, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("init snowflake node %d: %w", nodeID, err)
	}
	return &SnowflakeNumbers{node: node}, nil
}

func (s *SnowflakeNumbers) Next(_ *gorm.DB, at time.Time) (string, error) {
	return fmt.Sprintf("Q-%s-%s", dayStamp(at), strings.ToUpper(s.node.Generate().Base36())), nil
}

// NewNumberGenerator picks the strategy named by QUOTE_NUMBER_STRATEGY.
func NewNumberGenerator(strategy string, nodeID int64) (NumberGenerator, error) {
	switch strategy {
	case "", "sequence":
		return SequenceNumbers{}, nil
	case "snowflake":
		return NewSnowflakeNumbers(nodeID)
	default:
		return nil, fmt.Errorf("unknown quote number strategy %q", strategy)
	}
}
