package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateReferralTables creates the referral code, referral instance and
// milestone reward tables with the uniqueness guards the referral ledger
// relies on.
func CreateReferralTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_referral_tables",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS referral_codes (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					owner_id UUID NOT NULL UNIQUE REFERENCES profiles(id),
					code VARCHAR(50) NOT NULL UNIQUE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX idx_referral_codes_code ON referral_codes(code);
			`).Error; err != nil {
				return err
			}

			// referred_user_id is unique: a referred user can be credited to a
			// referrer at most once for life, no matter how many signup
			// attempts carry a code.
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS referrals (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					referral_code_id UUID NOT NULL REFERENCES referral_codes(id),
					referred_user_id UUID NOT NULL UNIQUE REFERENCES profiles(id),
					status VARCHAR(20) NOT NULL DEFAULT 'pendente',
					completed_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX idx_referrals_referral_code_id ON referrals(referral_code_id);
				CREATE INDEX idx_referrals_status ON referrals(status);
			`).Error; err != nil {
				return err
			}

			// Friend-count bonuses are unique per code; bilhetes_extras rows
			// accumulate, so the unique index is partial.
			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS referral_milestone_rewards (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					referral_code_id UUID NOT NULL REFERENCES referral_codes(id),
					tipo VARCHAR(30) NOT NULL,
					rifas INTEGER NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX idx_referral_milestone_rewards_code ON referral_milestone_rewards(referral_code_id);

				CREATE UNIQUE INDEX uidx_referral_milestone_once
					ON referral_milestone_rewards(referral_code_id, tipo)
					WHERE tipo IN ('bonus_3_amigos', 'bonus_5_amigos');
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`
				DROP TABLE IF EXISTS referral_milestone_rewards;
				DROP TABLE IF EXISTS referrals;
				DROP TABLE IF EXISTS referral_codes;
			`).Error
		},
	}
}
