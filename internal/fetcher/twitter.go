package fetcher

import (
	"fmt"
	"strings"
	"time"

	"github.com/creator-sync/internal/models"
	"github.com/creator-sync/internal/provider"
	"github.com/creator-sync/internal/types"
)

var (
	twitterID        = fields("id", "id_str", "tweetId")
	twitterURL       = fields("url", "twitterUrl")
	twitterCaption   = fields("fullText", "full_text", "text")
	twitterThumbnail = fields("media.0.media_url_https", "extendedEntities.media.0.media_url_https", "media.0.url", "media.0")
	twitterDate      = fields("createdAt", "created_at")
	twitterViews     = fields("viewCount", "views")
	twitterLikes     = fields("likeCount", "favorite_count")
	twitterReplies   = fields("replyCount", "reply_count")
	twitterRetweets  = fields("retweetCount", "retweet_count")
	twitterBookmarks = fields("bookmarkCount", "bookmark_count")
)

func twitterDef() platformDef {
	return platformDef{
		platform:  types.PlatformTwitter,
		normalize: normalizeTwitter,
		profile:   twitterProfile,
	}
}

func normalizeTwitter(item provider.RawItem, account *models.TrackedAccount, now time.Time) *models.VideoRecord {
	id := firstString(item, twitterID...)
	if id == "" {
		return nil
	}
	videoURL := firstString(item, twitterURL...)
	if videoURL == "" {
		videoURL = fmt.Sprintf("https://x.com/%s/status/%s", strings.TrimPrefix(account.Username, "@"), id)
	}
	durationMillis := firstInt(item, fields("extendedEntities.media.0.video_info.duration_millis")...)
	return &models.VideoRecord{
		VideoID:            id,
		VideoURL:           videoURL,
		Caption:            firstString(item, twitterCaption...),
		RemoteThumbnailURL: firstString(item, twitterThumbnail...),
		UploadDate:         firstTime(item, now, twitterDate...),
		Duration:           int(durationMillis / 1000),
		Metrics: models.Metrics{
			Views:    firstInt(item, twitterViews...),
			Likes:    firstInt(item, twitterLikes...),
			Comments: firstInt(item, twitterReplies...),
			Shares:   firstInt(item, twitterRetweets...),
			Saves:    firstInt(item, twitterBookmarks...),
		},
	}
}

func twitterProfile(item provider.RawItem) *models.ProfileInfo {
	if _, ok := field("author")(item); !ok {
		return nil
	}
	return &models.ProfileInfo{
		DisplayName:   firstString(item, fields("author.name", "author.userName")...),
		AvatarURL:     firstString(item, fields("author.profilePicture", "author.profile_image_url_https")...),
		FollowerCount: firstInt(item, fields("author.followers", "author.followers_count")...),
		Bio:           firstString(item, fields("author.description")...),
		IsVerified:    firstBool(item, fields("author.isBlueVerified", "author.isVerified", "author.verified")...),
	}
}
