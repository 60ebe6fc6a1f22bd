package identities

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/penter405/brainsync/internal/common"
	"github.com/penter405/brainsync/internal/cryptox"
	"github.com/penter405/brainsync/internal/dbx"
	"github.com/penter405/brainsync/internal/server/models"
)

const identityColumns = `identity_id, email, name, picture, access_token, refresh_token,
		 access_token_expiry, drive_file_id, drive_file_name, drive_folder_name, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindByIdentityID(ctx context.Context, identityID string) (*models.Identity, error) {
	query :=
		`SELECT ` + identityColumns + `
		 FROM identities
		 WHERE identity_id = $1
		 `

	identity, err := scanIdentity(r.db.QueryRowContext(ctx, query, identityID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return identity, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, identityID string, u models.IdentityUpdate) (*models.Identity, error) {
	query :=
		`INSERT INTO identities (identity_id, email, name, picture, access_token, refresh_token,
		 access_token_expiry, drive_file_id, drive_file_name, drive_folder_name)
		 VALUES ($1, COALESCE($2::text, ''), COALESCE($3::text, ''), COALESCE($4::text, ''),
		 $5::jsonb, $6::jsonb, $7::timestamptz, $8::text, $9::text, $10::text)
		 ON CONFLICT (identity_id) DO UPDATE SET
		 email = COALESCE($2::text, identities.email),
		 name = COALESCE($3::text, identities.name),
		 picture = COALESCE($4::text, identities.picture),
		 access_token = COALESCE($5::jsonb, identities.access_token),
		 refresh_token = COALESCE($6::jsonb, identities.refresh_token),
		 access_token_expiry = COALESCE($7::timestamptz, identities.access_token_expiry),
		 drive_file_id = COALESCE($8::text, identities.drive_file_id),
		 drive_file_name = COALESCE($9::text, identities.drive_file_name),
		 drive_folder_name = COALESCE($10::text, identities.drive_folder_name),
		 updated_at = now()
		 RETURNING ` + identityColumns + `
		 `

	args, err := updateArgs(identityID, u)
	if err != nil {
		return nil, err
	}

	identity, err := scanIdentity(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return identity, nil
}

func (r *PostgresRepository) Update(ctx context.Context, identityID string, u models.IdentityUpdate) error {
	query :=
		`UPDATE identities SET
		 email = COALESCE($2::text, email),
		 name = COALESCE($3::text, name),
		 picture = COALESCE($4::text, picture),
		 access_token = COALESCE($5::jsonb, access_token),
		 refresh_token = COALESCE($6::jsonb, refresh_token),
		 access_token_expiry = COALESCE($7::timestamptz, access_token_expiry),
		 drive_file_id = COALESCE($8::text, drive_file_id),
		 drive_file_name = COALESCE($9::text, drive_file_name),
		 drive_folder_name = COALESCE($10::text, drive_folder_name),
		 updated_at = now()
		 WHERE identity_id = $1
		 `

	args, err := updateArgs(identityID, u)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return expectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, identityID string) error {
	query :=
		`DELETE FROM identities
		 WHERE identity_id = $1
		 `

	res, err := r.db.ExecContext(ctx, query, identityID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// updateArgs lays out $1..$10 for Upsert and Update. Absent fields become
// NULL so COALESCE keeps the stored value.
func updateArgs(identityID string, u models.IdentityUpdate) ([]any, error) {
	access, err := envelopeArg(u.AccessToken)
	if err != nil {
		return nil, err
	}
	refresh, err := envelopeArg(u.RefreshToken)
	if err != nil {
		return nil, err
	}

	var expiry any
	if u.AccessTokenExpiry != nil {
		expiry = u.AccessTokenExpiry.UTC()
	}

	return []any{
		identityID,
		stringArg(u.Email),
		stringArg(u.Name),
		stringArg(u.Picture),
		access,
		refresh,
		expiry,
		stringArg(u.DriveFileID),
		stringArg(u.DriveFileName),
		stringArg(u.DriveFolderName),
	}, nil
}

func stringArg(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func envelopeArg(env *cryptox.Envelope) (any, error) {
	if env == nil {
		return nil, nil
	}
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encoding envelope: %w", err)
	}
	return string(b), nil
}

func decodeEnvelope(b []byte) (*cryptox.Envelope, error) {
	if len(b) == 0 {
		return nil, nil
	}
	env := &cryptox.Envelope{}
	if err := json.Unmarshal(b, env); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	return env, nil
}

func scanIdentity(row *sql.Row) (*models.Identity, error) {
	var (
		i                            models.Identity
		access, refresh              []byte
		expiry                       sql.NullTime
		fileID, fileName, folderName sql.NullString
		createdAt, updatedAt         time.Time
	)

	err := row.Scan(&i.IdentityID, &i.Email, &i.Name, &i.Picture, &access, &refresh,
		&expiry, &fileID, &fileName, &folderName, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if i.AccessToken, err = decodeEnvelope(access); err != nil {
		return nil, err
	}
	if i.RefreshToken, err = decodeEnvelope(refresh); err != nil {
		return nil, err
	}

	i.AccessTokenExpiry = expiry.Time
	i.DriveFileID = fileID.String
	i.DriveFileName = fileName.String
	i.DriveFolderName = folderName.String
	i.CreatedAt = createdAt
	i.UpdatedAt = updatedAt

	return &i, nil
}
