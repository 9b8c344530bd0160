package relay

import (
	"errors"
	"fmt"

	"github.com/memohai/photorelay/internal/telegram"
	"github.com/memohai/photorelay/internal/upload"
)

const (
	confirmButtonText = "📧 Send to Email"
	closeButtonText   = "❌ Close"

	sendingToast = "📧 Sending to email..."
	closedToast  = "Closed"

	expiredText     = "❌ Upload session expired. Please send the photo again."
	failedText      = "❌ Failed to send the email"
	unavailableText = "❌ Email delivery is not configured"
)

func helpText(canDeliver bool) string {
	text := "📸 Photo Upload Bot\n\nSend me a photo and I'll give you the file link!"
	if canDeliver {
		text += "\n📧 I can also send it to your email!"
	}
	return text
}

func photoReceivedText(url string, size int64) string {
	return fmt.Sprintf("✅ Photo Received!\n\n🔗 File URL:\n%s\n\n📊 Size: %.1f KB", url, float64(size)/1024)
}

func photoKeyboard(id string, canDeliver bool) [][]telegram.Button {
	rows := make([][]telegram.Button, 0, 2)
	if canDeliver {
		rows = append(rows, []telegram.Button{{Text: confirmButtonText, Data: ConfirmPrefix + id}})
	}
	return append(rows, []telegram.Button{{Text: closeButtonText, Data: CancelData}})
}

func errorText(err error) string {
	return "❌ Error: " + err.Error()
}

func outcomeText(res upload.Result) string {
	switch res.Outcome {
	case upload.OutcomeDelivered:
		return fmt.Sprintf("✅ Email sent!\n\n📧 Sent to: %s\n📎 File: %s", res.Receipt.Recipient, res.Receipt.FileName)
	case upload.OutcomeExpired:
		return expiredText
	default:
		if errors.Is(res.Err, upload.ErrDeliveryUnavailable) {
			return unavailableText
		}
		return failedText
	}
}
