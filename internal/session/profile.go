package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gotmail/gotmail-go/internal/api"
)

// ProfileUpdate carries the optional scalar fields of a profile mutation
// plus at most one profile picture source. Empty scalars are omitted from
// the outgoing payload so they do not overwrite existing server-side
// values. PicturePath and PictureData are mutually exclusive.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Email     string
	Bio       string
	Birthdate string // YYYY-MM-DD

	// PicturePath uploads the profile picture from a file on disk.
	PicturePath string
	// PictureData uploads the profile picture from an in-memory buffer.
	PictureData []byte
	// PictureName names the in-memory buffer in the multipart part
	// header. Optional; ignored for PicturePath uploads.
	PictureName string
}

// pictureSource maps the update's picture fields onto the pipeline's
// binary payload sum type. Supplying both variants is a caller contract
// violation.
func (u ProfileUpdate) pictureSource() (api.BinarySource, error) {
	if u.PicturePath != "" && len(u.PictureData) > 0 {
		return nil, fmt.Errorf("%w: both picture file and byte buffer supplied", api.ErrInvalidArgument)
	}

	switch {
	case u.PicturePath != "":
		return api.FileRef{Path: u.PicturePath}, nil
	case len(u.PictureData) > 0:
		name := u.PictureName
		if name == "" {
			name = "profile.jpg"
		}

		return api.ByteBuffer{Name: name, Data: u.PictureData}, nil
	default:
		return nil, nil
	}
}

func (u ProfileUpdate) scalars() api.ProfileUpdate {
	return api.ProfileUpdate{
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Bio:       u.Bio,
		Birthdate: u.Birthdate,
	}
}

// FetchUserProfile retrieves the authenticated user's profile and
// replaces it in the session, notifying subscribers. Pipeline errors
// propagate as-is with no state mutation.
func (s *Session) FetchUserProfile(ctx context.Context) (*api.UserProfile, error) {
	profile, err := s.api.Profile(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.profile = profile
	s.notifyLocked()
	account := s.account
	s.mu.Unlock()

	s.cacheSnapshot(ctx, account, profile)

	return profile, nil
}

// UpdateProfile applies a profile mutation. With a picture source present
// the request goes through the multipart upload path, otherwise through a
// JSON PUT. On success both the account and the profile are replaced from
// the response, with a single subscriber notification for the combined
// update. On any failure — including an invalid picture selection, which
// is rejected before any network call — the session is left unchanged.
func (s *Session) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	picture, err := update.pictureSource()
	if err != nil {
		return err
	}

	var result *api.ProfileResult

	if picture != nil {
		result, err = s.api.UploadProfilePicture(ctx, update.scalars(), picture)
	} else {
		result, err = s.api.UpdateProfile(ctx, update.scalars())
	}

	if err != nil {
		return err
	}

	account := result.Account
	profile := result.Profile

	s.mu.Lock()
	s.account = &account
	s.profile = &profile
	s.notifyLocked()
	s.mu.Unlock()

	s.cacheSnapshot(ctx, &account, &profile)

	s.logger.Info("profile updated",
		slog.String("account_id", account.ID),
		slog.Bool("picture", picture != nil),
	)

	return nil
}
