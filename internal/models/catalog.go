package models

// Tag and Ingredient are reference data: loaded by the catalog importer and
// only ever read by recipe operations.

type Tag struct {
	ID   uint   `gorm:"primarykey"`
	Name string `gorm:"size:32;uniqueIndex;not null"`
	Slug string `gorm:"size:32;uniqueIndex;not null"`
}

type Ingredient struct {
	ID              uint   `gorm:"primarykey"`
	Name            string `gorm:"size:128;not null;uniqueIndex:idx_ingredient_name_unit;index"`
	MeasurementUnit string `gorm:"size:64;not null;uniqueIndex:idx_ingredient_name_unit"`
}
