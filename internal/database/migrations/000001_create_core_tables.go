package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// CreateCoreTables creates profiles, missions, submissions and the reward ledger
func CreateCoreTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_core_tables",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.Exec(`
				CREATE EXTENSION IF NOT EXISTS "pgcrypto";

				CREATE TABLE IF NOT EXISTS profiles (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					email VARCHAR(255) NOT NULL UNIQUE,
					full_name VARCHAR(150),
					password_hash VARCHAR(255) NOT NULL,
					user_type VARCHAR(20) NOT NULL DEFAULT 'participante',
					rifas INTEGER NOT NULL DEFAULT 0,
					cashback_balance DECIMAL(20,2) NOT NULL DEFAULT 0,
					is_active BOOLEAN DEFAULT TRUE,
					last_login_at TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX idx_profiles_email ON profiles(email);
				CREATE INDEX idx_profiles_user_type ON profiles(user_type);
			`).Error; err != nil {
				return err
			}

			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS missions (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					created_by UUID NOT NULL REFERENCES profiles(id),
					title VARCHAR(200) NOT NULL,
					slug VARCHAR(220) NOT NULL UNIQUE,
					description TEXT,
					requirements JSONB,
					submission_kind VARCHAR(20) NOT NULL DEFAULT 'text',
					rifas_per_mission INTEGER NOT NULL DEFAULT 0,
					cashback_reward DECIMAL(20,2) NOT NULL DEFAULT 0,
					is_active BOOLEAN DEFAULT TRUE,
					start_date TIMESTAMP WITH TIME ZONE,
					end_date TIMESTAMP WITH TIME ZONE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX idx_missions_created_by ON missions(created_by);
				CREATE INDEX idx_missions_is_active ON missions(is_active);
			`).Error; err != nil {
				return err
			}

			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS mission_submissions (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					mission_id UUID NOT NULL REFERENCES missions(id),
					user_id UUID NOT NULL REFERENCES profiles(id),
					status VARCHAR(30) NOT NULL DEFAULT 'pending_approval',
					second_instance_status VARCHAR(30),
					review_stage VARCHAR(20) NOT NULL DEFAULT 'first_review',
					submission_data JSONB,
					submitted_at TIMESTAMP WITH TIME ZONE NOT NULL,
					validated_by UUID REFERENCES profiles(id),
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX idx_mission_submissions_mission_id ON mission_submissions(mission_id);
				CREATE INDEX idx_mission_submissions_user_id ON mission_submissions(user_id);
				CREATE INDEX idx_mission_submissions_status ON mission_submissions(status);
			`).Error; err != nil {
				return err
			}

			// The unique index on submission_id is the double-payment guard:
			// concurrent finalize calls race on it and exactly one insert wins.
			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS mission_rewards (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					user_id UUID NOT NULL REFERENCES profiles(id),
					mission_id UUID NOT NULL REFERENCES missions(id),
					submission_id UUID NOT NULL UNIQUE REFERENCES mission_submissions(id),
					rifas_earned INTEGER NOT NULL,
					cashback_earned DECIMAL(20,2) NOT NULL DEFAULT 0,
					rewarded_at TIMESTAMP WITH TIME ZONE NOT NULL,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX idx_mission_rewards_user_id ON mission_rewards(user_id);
			`).Error; err != nil {
				return err
			}

			if err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS rifas_transactions (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					user_id UUID NOT NULL REFERENCES profiles(id),
					mission_id UUID,
					submission_id UUID,
					type VARCHAR(30) NOT NULL,
					rifas INTEGER NOT NULL DEFAULT 0,
					cashback DECIMAL(20,2) NOT NULL DEFAULT 0,
					rifas_before INTEGER NOT NULL DEFAULT 0,
					rifas_after INTEGER NOT NULL DEFAULT 0,
					reference VARCHAR(120) NOT NULL UNIQUE,
					description VARCHAR(255),
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX idx_rifas_transactions_user_id ON rifas_transactions(user_id);
			`).Error; err != nil {
				return err
			}

			return tx.Exec(`
				CREATE TABLE IF NOT EXISTS notifications (
					id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
					user_id UUID NOT NULL REFERENCES profiles(id),
					type VARCHAR(50) NOT NULL,
					title VARCHAR(150) NOT NULL,
					message TEXT,
					read BOOLEAN DEFAULT FALSE,
					created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
					deleted_at TIMESTAMP WITH TIME ZONE
				);

				CREATE INDEX idx_notifications_user_id ON notifications(user_id);
			`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Exec(`
				DROP TABLE IF EXISTS notifications;
				DROP TABLE IF EXISTS rifas_transactions;
				DROP TABLE IF EXISTS mission_rewards;
				DROP TABLE IF EXISTS mission_submissions;
				DROP TABLE IF EXISTS missions;
				DROP TABLE IF EXISTS profiles;
			`).Error
		},
	}
}
