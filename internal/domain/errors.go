package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrValidation        = errors.New("validation failed")
	ErrAlreadyInProgress = errors.New("video generation already in progress")
	ErrStoreConflict     = errors.New("store conflict")
	ErrUploadFailed      = errors.New("upload failed")
	ErrPromptSynthesis   = errors.New("prompt synthesis failed")
	ErrImageSynthesis    = errors.New("image synthesis failed")
	ErrVideoSynthesis    = errors.New("video synthesis failed")
)
