package services

import (
	"log"
	"os"
	"strings"
)

// MediaService resolves opaque media references attached to prayer requests
// into public URLs. Storage and thumbnail rendering live elsewhere; this is
// the whole collaborator surface the lifecycle engine needs.
type MediaService struct {
	baseURL string
}

var mediaService *MediaService

func InitMediaService() {
	baseURL := strings.TrimRight(os.Getenv("MEDIA_CDN_BASE_URL"), "/")
	if baseURL == "" {
		log.Println("WARNING: MEDIA_CDN_BASE_URL not set. Media references will not resolve.")
	}
	mediaService = &MediaService{baseURL: baseURL}
}

func GetMediaService() *MediaService {
	return mediaService
}

// Resolve returns the public URL for a media reference, or nil when there is
// no reference or no configured CDN.
func (s *MediaService) Resolve(ref *string) *string {
	if s == nil || s.baseURL == "" || ref == nil || *ref == "" {
		return nil
	}
	url := s.baseURL + "/" + strings.TrimLeft(*ref, "/")
	return &url
}

// ResolveMediaURL is the nil-safe package helper controllers use.
func ResolveMediaURL(ref *string) *string {
	return mediaService.Resolve(ref)
}
