package domain

import (
	"time" // Timestamps

	"calculator_app/internal/calc" // Arithmetic evaluation

	"github.com/google/uuid" // UUID primary keys
	"gorm.io/datatypes"      // JSON column types
	"gorm.io/gorm"           // GORM ORM library
)

// Calculation Model
type Calculation struct {
	ID        uuid.UUID                    `gorm:"type:char(36);primaryKey" json:"id"`          // Primary key
	UserID    uuid.UUID                    `gorm:"type:char(36);not null;index" json:"user_id"` // Foreign key to the owning User
	Type      string                       `gorm:"size:50;not null" json:"type"`                // Operation name, see calc.Types
	Inputs    datatypes.JSONSlice[float64] `gorm:"not null" json:"inputs"`                      // Ordered operands
	Result    float64                      `json:"result"`                                      // Evaluation of Type over Inputs
	CreatedAt time.Time                    `json:"created_at"`                                  // Creation timestamp
	UpdatedAt time.Time                    `json:"updated_at"`                                  // Last update timestamp
}

// NewCalculation validates the operation and operands and returns an
// unsaved record with its result filled in
func NewCalculation(userID uuid.UUID, calcType string, inputs []float64) (*Calculation, error) {
	t, err := calc.ParseType(calcType)
	if err != nil {
		return nil, err
	}
	c := &Calculation{UserID: userID, Type: string(t), Inputs: datatypes.JSONSlice[float64](inputs)}
	if err := c.Recompute(); err != nil {
		return nil, err
	}
	return c, nil
}

// Recompute refreshes Result from Type and Inputs
func (c *Calculation) Recompute() error {
	result, err := calc.Evaluate(calc.Type(c.Type), c.Inputs)
	if err != nil {
		return err
	}
	c.Result = result
	return nil
}

// Expression renders the calculation in infix form
func (c *Calculation) Expression() string {
	return calc.String(calc.Type(c.Type), c.Inputs)
}

// BeforeCreate assigns a fresh UUID when none was set
func (c *Calculation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
