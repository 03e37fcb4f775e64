package fetcher

import (
	"fmt"
	"time"

	"github.com/creator-sync/internal/models"
	"github.com/creator-sync/internal/provider"
	"github.com/creator-sync/internal/types"
)

var (
	instagramID        = fields("id", "shortCode", "shortcode")
	instagramShortCode = fields("shortCode", "shortcode")
	instagramURL       = fields("url", "postUrl")
	instagramCaption   = fields("caption", "alt")
	instagramThumbnail = fields("displayUrl", "thumbnailUrl", "images.0", "childPosts.0.displayUrl")
	instagramDate      = fields("timestamp", "takenAtTimestamp", "taken_at")
	instagramDuration  = fields("videoDuration")
	instagramViews     = fields("videoViewCount", "videoPlayCount", "playCount")
	instagramLikes     = fields("likesCount", "likes")
	instagramComments  = fields("commentsCount", "comments")
)

func instagramDef() platformDef {
	return platformDef{
		platform:   types.PlatformInstagram,
		refreshURL: instagramPostURL,
		normalize:  normalizeInstagram,
		profile:    instagramProfile,
	}
}

// Instagram post URLs need the shortcode, which only the stored URL carries
func instagramPostURL(_ *models.TrackedAccount, _ string, storedURL string) string {
	return storedURL
}

func normalizeInstagram(item provider.RawItem, _ *models.TrackedAccount, now time.Time) *models.VideoRecord {
	id := firstString(item, instagramID...)
	if id == "" {
		return nil
	}
	videoURL := firstString(item, instagramURL...)
	if videoURL == "" {
		if code := firstString(item, instagramShortCode...); code != "" {
			videoURL = fmt.Sprintf("https://www.instagram.com/p/%s/", code)
		}
	}
	return &models.VideoRecord{
		VideoID:            id,
		VideoURL:           videoURL,
		Caption:            firstString(item, instagramCaption...),
		RemoteThumbnailURL: firstString(item, instagramThumbnail...),
		UploadDate:         firstTime(item, now, instagramDate...),
		Duration:           firstDuration(item, instagramDuration...),
		Metrics: models.Metrics{
			Views:    firstInt(item, instagramViews...),
			Likes:    firstInt(item, instagramLikes...),
			Comments: firstInt(item, instagramComments...),
		},
	}
}

func instagramProfile(item provider.RawItem) *models.ProfileInfo {
	name := firstString(item, fields("ownerFullName", "ownerUsername")...)
	avatar := firstString(item, fields("ownerProfilePicUrl", "profilePicUrl")...)
	if name == "" && avatar == "" {
		return nil
	}
	return &models.ProfileInfo{
		DisplayName:   name,
		AvatarURL:     avatar,
		FollowerCount: firstInt(item, fields("ownerFollowersCount", "followersCount")...),
		IsVerified:    firstBool(item, fields("ownerIsVerified", "verified")...),
	}
}
