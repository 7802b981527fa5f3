package bootstrap

import (
	"log"

	"anoa.com/engagementledger/internal/entity"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedDevData creates a development author with one article and one comment
// so the engagement endpoints have something to react to. Only called in the
// development environment.
func SeedDevData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&entity.User{}).
		Where("email = ?", "dev@example.com").
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Dev data already exists, skipping seed")
		return nil
	}

	hashedPasswordBytes, err := bcrypt.GenerateFromPassword([]byte("dev12345"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	devUser := entity.User{
		Username:     "dev",
		Email:        "dev@example.com",
		PasswordHash: string(hashedPasswordBytes),
	}
	if err := db.Create(&devUser).Error; err != nil {
		return err
	}

	article := entity.Article{
		AuthorID: devUser.ID,
		Slug:     "hello-world",
		Title:    "Hello World",
		Body:     "The first article.",
	}
	if err := db.Create(&article).Error; err != nil {
		return err
	}

	comment := entity.Comment{
		ArticleID: article.ID,
		AuthorID:  devUser.ID,
		Body:      "First!",
	}
	if err := db.Create(&comment).Error; err != nil {
		return err
	}

	log.Println("✅ Dev data seeded successfully")
	log.Printf("   Article slug: %s", article.Slug)

	return nil
}
