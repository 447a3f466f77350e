package history

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SeasonRecord is one committed sunrise. Amounts are decimal strings so the
// schema is identical on sqlite and postgres.
type SeasonRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Season      uint64    `gorm:"uniqueIndex;not null"`
	Timestamp   time.Time `gorm:"index"`
	Caller      string
	CaseID      int
	DeltaB      string
	Price       string
	PodRate     string
	L2SR        string
	Minted      string
	Soil        string
	Temperature string
	Raining     bool
	FloodBeans  string
	FloodAmount string
	Incentive   string
	SecondsLate uint64
	StalkTotal  string
	RootsTotal  string
	EarnedBeans string
	Digest      string           `gorm:"size:64"`
	Shipments   []ShipmentRecord `gorm:"foreignKey:SeasonRecordID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
}

// ShipmentRecord is the delivery to one route in a season.
type ShipmentRecord struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	SeasonRecordID uuid.UUID `gorm:"type:uuid;index"`
	Season         uint64    `gorm:"index"`
	Route          string
	Offered        string
	Accepted       string
}

// AutoMigrate creates or updates the history tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&SeasonRecord{}, &ShipmentRecord{})
}
