package whatsapp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sunshineplan/imgconv"
	"google.golang.org/protobuf/proto"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
)

var ErrInvalidGroupID = errors.New("WhatsApp Group ID is Not Group Server")

// SendText sends a plain conversation message and returns once it is queued.
func (s *Session) SendText(ctx context.Context, chat types.JID, text string) error {
	if err := s.IsHealthy(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	msgExtra := whatsmeow.SendRequestExtra{ID: s.client.GenerateMessageID()}
	msgContent := &waE2E.Message{
		Conversation: proto.String(text),
	}
	_, err := s.client.SendMessage(ctx, chat, msgContent, msgExtra)
	return err
}

// SendTextWithMentions sends an extended text message tagging the given
// JIDs, used by tagall.
func (s *Session) SendTextWithMentions(ctx context.Context, chat types.JID, text string, mentions []types.JID) error {
	if err := s.IsHealthy(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	mentioned := make([]string, 0, len(mentions))
	for _, jid := range mentions {
		mentioned = append(mentioned, jid.String())
	}
	msgContent := &waE2E.Message{
		ExtendedTextMessage: &waE2E.ExtendedTextMessage{
			Text: proto.String(text),
			ContextInfo: &waE2E.ContextInfo{
				MentionedJID: mentioned,
			},
		},
	}
	_, err := s.client.SendMessage(ctx, chat, msgContent)
	return err
}

type fetchedImage struct {
	data     []byte
	mimeType string
}

// fetchImage downloads an image URL, de-duplicating concurrent fetches for
// the same URL (the alive and menu images are hit from many chats at once).
func (s *Session) fetchImage(ctx context.Context, url string) (*fetchedImage, error) {
	v, err, _ := s.fetchGroup.Do(url, func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("image fetch returned status %d", resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, 10*1024*1024))
		if err != nil {
			return nil, err
		}
		mimeType := resp.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = http.DetectContentType(data)
		}
		return &fetchedImage{data: data, mimeType: mimeType}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*fetchedImage), nil
}

// SendImageURL downloads an image and sends it with a caption. A 72px JPEG
// thumbnail is generated for the chat list preview.
func (s *Session) SendImageURL(ctx context.Context, chat types.JID, url string, caption string) error {
	if err := s.IsHealthy(); err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	img, err := s.fetchImage(ctx, url)
	if err != nil {
		return err
	}

	imgThumbDecode, err := imgconv.Decode(bytes.NewReader(img.data))
	if err != nil {
		return errors.New("Error While Decoding Thumbnail Image Stream")
	}
	imgThumbEncode := new(bytes.Buffer)
	err = imgconv.Write(imgThumbEncode,
		imgconv.Resize(imgThumbDecode, &imgconv.ResizeOption{Width: 72}),
		&imgconv.FormatOption{Format: imgconv.JPEG})
	if err != nil {
		return errors.New("Error While Encoding Thumbnail Image Stream")
	}

	imageUploaded, err := s.client.Upload(ctx, img.data, whatsmeow.MediaImage)
	if err != nil {
		return errors.New("Error While Uploading Media to WhatsApp Server")
	}

	msgExtra := whatsmeow.SendRequestExtra{ID: s.client.GenerateMessageID()}
	msgContent := &waE2E.Message{
		ImageMessage: &waE2E.ImageMessage{
			URL:           proto.String(imageUploaded.URL),
			DirectPath:    proto.String(imageUploaded.DirectPath),
			Mimetype:      proto.String(img.mimeType),
			Caption:       proto.String(caption),
			FileLength:    proto.Uint64(imageUploaded.FileLength),
			FileSHA256:    imageUploaded.FileSHA256,
			FileEncSHA256: imageUploaded.FileEncSHA256,
			MediaKey:      imageUploaded.MediaKey,
			JPEGThumbnail: imgThumbEncode.Bytes(),
		},
	}
	_, err = s.client.SendMessage(ctx, chat, msgContent, msgExtra)
	return err
}

// GroupParticipantsUpdate adds, removes, promotes or demotes participants.
func (s *Session) GroupParticipantsUpdate(ctx context.Context, group types.JID, participants []types.JID, change whatsmeow.ParticipantChange) ([]types.GroupParticipant, error) {
	if err := s.IsHealthy(); err != nil {
		return nil, err
	}
	if group.Server != types.GroupServer {
		return nil, ErrInvalidGroupID
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return s.client.UpdateGroupParticipants(ctx, group, participants, change)
}

// GroupMetadata fetches the member list for tagall.
func (s *Session) GroupMetadata(ctx context.Context, group types.JID) (*types.GroupInfo, error) {
	if err := s.IsHealthy(); err != nil {
		return nil, err
	}
	if group.Server != types.GroupServer {
		return nil, ErrInvalidGroupID
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return s.client.GetGroupInfo(ctx, group)
}

// GroupSetAnnounce toggles admins-only mode, used by mute and unmute.
func (s *Session) GroupSetAnnounce(ctx context.Context, group types.JID, announce bool) error {
	if err := s.IsHealthy(); err != nil {
		return err
	}
	if group.Server != types.GroupServer {
		return ErrInvalidGroupID
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return s.client.SetGroupAnnounce(ctx, group, announce)
}
