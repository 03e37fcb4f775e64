package fetcher

import (
	"fmt"
	"time"

	"github.com/creator-sync/internal/models"
	"github.com/creator-sync/internal/provider"
	"github.com/creator-sync/internal/types"
)

var (
	youtubeID        = fields("id", "videoId")
	youtubeURL       = fields("url")
	youtubeCaption   = fields("title", "text")
	youtubeThumbnail = fields("thumbnailUrl", "thumbnails.0.url", "thumbnail")
	youtubeDate      = fields("date", "uploadDate", "publishedAt")
	youtubeDuration  = fields("duration", "lengthSeconds")
	youtubeViews     = fields("viewCount", "views")
	youtubeLikes     = fields("likes", "likeCount")
	youtubeComments  = fields("commentsCount", "commentCount")
)

// YouTube has no bulk refresh; known videos keep their stored metrics
func youtubeDef() platformDef {
	return platformDef{
		platform:  types.PlatformYouTube,
		normalize: normalizeYouTube,
		profile:   youtubeProfile,
	}
}

func normalizeYouTube(item provider.RawItem, _ *models.TrackedAccount, now time.Time) *models.VideoRecord {
	id := firstString(item, youtubeID...)
	if id == "" {
		return nil
	}
	videoURL := firstString(item, youtubeURL...)
	if videoURL == "" {
		videoURL = "https://www.youtube.com/watch?v=" + id
	}
	thumb := firstString(item, youtubeThumbnail...)
	if thumb == "" {
		thumb = fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", id)
	}
	return &models.VideoRecord{
		VideoID:            id,
		VideoURL:           videoURL,
		Caption:            firstString(item, youtubeCaption...),
		RemoteThumbnailURL: thumb,
		UploadDate:         firstTime(item, now, youtubeDate...),
		Duration:           firstDuration(item, youtubeDuration...),
		Metrics: models.Metrics{
			Views:    firstInt(item, youtubeViews...),
			Likes:    firstInt(item, youtubeLikes...),
			Comments: firstInt(item, youtubeComments...),
		},
	}
}

func youtubeProfile(item provider.RawItem) *models.ProfileInfo {
	name := firstString(item, fields("channelName", "aboutChannelInfo.channelName")...)
	if name == "" {
		return nil
	}
	return &models.ProfileInfo{
		DisplayName:   name,
		AvatarURL:     firstString(item, fields("channelAvatarUrl", "aboutChannelInfo.channelAvatarUrl")...),
		FollowerCount: firstInt(item, fields("numberOfSubscribers", "aboutChannelInfo.numberOfSubscribers")...),
		Bio:           firstString(item, fields("channelDescription", "aboutChannelInfo.channelDescription")...),
		IsVerified:    firstBool(item, fields("isChannelVerified", "aboutChannelInfo.isChannelVerified")...),
	}
}
