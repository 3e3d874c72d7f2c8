package services

import (
	"fmt"

	"github.com/testplan-ai/backend/internal/models"
	"github.com/testplan-ai/backend/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RotateSecrets re-encrypts every secret setting from one passphrase to
// another inside a single transaction. Any value that cannot be decrypted
// with from aborts the rotation and leaves the table untouched.
func (s *SettingService) RotateSecrets(from, to *utils.SecretCodec) (int, error) {
	rotated := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var rows []models.Setting
		if err := tx.Find(&rows).Error; err != nil {
			return err
		}
		for _, row := range rows {
			if !IsSecretSetting(row.Key) || row.Value == "" {
				continue
			}
			plaintext := from.Decrypt(row.Value)
			if plaintext == "" {
				return fmt.Errorf("cannot decrypt %s with the current passphrase", row.Key)
			}
			token, err := to.Encrypt(plaintext)
			if err != nil {
				return err
			}
			if err := tx.Model(&models.Setting{}).
				Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: row.Key}).
				Updates(map[string]interface{}{"value": token}).Error; err != nil {
				return err
			}
			rotated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rotated, nil
}
