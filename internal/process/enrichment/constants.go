// Package enrichment drives the tagging, embedding and status loops.
package enrichment

const (
	stageTagging   = "tagging"
	stageEmbedding = "embedding"

	// Log field keys
	logKeyItemID        = "item_id"
	logKeyMessageID     = "message_id"
	logKeyChannel       = "channel"
	logKeyCorrelationID = "correlation_id"
	logKeyCount         = "count"
	logKeyElapsedMS     = "elapsed_ms"

	previewLimit  = 180
	tagsLimit     = 14
	codeLimit     = 6
	errorLimit    = 160
	progressCells = 12

	// Progress details shown in the status message.
	detailServicePost = "Сервисный пост (пропуск)"
	detailTagging     = "Тегирование"
	detailTagError    = "Ошибка тегирования"
	detailEmbedding   = "Эмбеддинг"
	detailEmbedError  = "ошибка эмбеддинга"
	detailStartup     = "Инициализация"
)
