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
	tiktokID        = fields("id", "aweme_id")
	tiktokURL       = fields("webVideoUrl", "url")
	tiktokCaption   = fields("text", "desc")
	tiktokThumbnail = fields("videoMeta.coverUrl", "videoMeta.originalCoverUrl", "covers.default", "covers.0")
	tiktokDate      = fields("createTimeISO", "createTime")
	tiktokDuration  = fields("videoMeta.duration", "duration")
	tiktokViews     = fields("playCount", "stats.playCount")
	tiktokLikes     = fields("diggCount", "stats.diggCount")
	tiktokComments  = fields("commentCount", "stats.commentCount")
	tiktokShares    = fields("shareCount", "stats.shareCount")
	tiktokSaves     = fields("collectCount", "stats.collectCount")
)

func tiktokDef() platformDef {
	return platformDef{
		platform:   types.PlatformTikTok,
		refreshURL: tiktokPostURL,
		normalize:  normalizeTikTok,
		profile:    tiktokProfile,
	}
}

func tiktokPostURL(account *models.TrackedAccount, videoID, storedURL string) string {
	if storedURL != "" {
		return storedURL
	}
	return fmt.Sprintf("https://www.tiktok.com/@%s/video/%s", strings.TrimPrefix(account.Username, "@"), videoID)
}

func normalizeTikTok(item provider.RawItem, account *models.TrackedAccount, now time.Time) *models.VideoRecord {
	id := firstString(item, tiktokID...)
	if id == "" {
		return nil
	}
	videoURL := firstString(item, tiktokURL...)
	if videoURL == "" {
		videoURL = tiktokPostURL(account, id, "")
	}
	return &models.VideoRecord{
		VideoID:            id,
		VideoURL:           videoURL,
		Caption:            firstString(item, tiktokCaption...),
		RemoteThumbnailURL: firstString(item, tiktokThumbnail...),
		UploadDate:         firstTime(item, now, tiktokDate...),
		Duration:           firstDuration(item, tiktokDuration...),
		Metrics: models.Metrics{
			Views:    firstInt(item, tiktokViews...),
			Likes:    firstInt(item, tiktokLikes...),
			Comments: firstInt(item, tiktokComments...),
			Shares:   firstInt(item, tiktokShares...),
			Saves:    firstInt(item, tiktokSaves...),
		},
	}
}

func tiktokProfile(item provider.RawItem) *models.ProfileInfo {
	if _, ok := field("authorMeta")(item); !ok {
		return nil
	}
	return &models.ProfileInfo{
		DisplayName:   firstString(item, fields("authorMeta.nickName", "authorMeta.name")...),
		AvatarURL:     firstString(item, fields("authorMeta.avatar", "authorMeta.originalAvatarUrl")...),
		FollowerCount: firstInt(item, fields("authorMeta.fans", "authorMeta.followers")...),
		Bio:           firstString(item, fields("authorMeta.signature")...),
		IsVerified:    firstBool(item, fields("authorMeta.verified")...),
	}
}
