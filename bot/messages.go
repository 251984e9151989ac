package bot

// Reply keyboard buttons and user-facing texts. Kept in one place so
// the tests can assert against them.
const (
	btnListTokens  = "Ключи"
	btnDeleteToken = "Стереть ключ"
	btnChannel     = "Наш канал"

	msgGreeting      = "Я ваш помощник в обмене файлами."
	msgChannelInfo   = "Подписывайтесь на наш канал, чтобы быть в курсе новостей: %s"
	msgSubscribe     = "Чтобы быть в курсе новостей и получать обновления, подпишитесь на наш канал: %s"
	msgNoTokens      = "У вас нет сохраненных ключей."
	msgTokenLine     = "`%s` — Использований: %d"
	msgRateLimited   = "Подождите немного перед следующим запросом (%d сек.)"
	msgDeletePrompt  = "Отправьте токен, который хотите стереть."
	msgDeleted       = "Ключ %s был успешно стерт."
	msgDeleteMissed  = "Ключ не найден или не принадлежит вам."
	msgDocSaved      = "Файл сохранен. Можете поделиться им, просто отправьте этот ключ боту: `%s`"
	msgPhotoSaved    = "Фото сохранено. Можете поделиться им, просто отправьте этот ключ боту: `%s`"
	msgVideoSaved    = "Видео сохранено. Можете поделиться им, просто отправьте этот ключ боту: `%s`"
	msgTokenNotFound = "Файл с таким ключом не найден."
	msgStaleFile     = "file_id больше недоступен, отправляю файл по ссылке."
	msgInternalErr   = "Произошла ошибка, попробуйте позже."

	msgNoPermission  = "У вас нет прав для выполнения этой команды."
	msgAdminGreeting = "Добро пожаловать в админский бот. Используйте команды для управления."
	msgUserCount     = "Общее количество пользователей: %d"
	msgTopHeader     = "Топ популярных токенов:\n"
	msgTopLine       = "Токен: `%s`, Использований: %d\n"
	msgTopEmpty      = "Нет данных о токенах."
	msgTopUsage      = "Пожалуйста, укажите число для количества топовых токенов. Пример: /top_tokens 10"
	msgStatsPrompt   = "Пожалуйста, отправьте токен, для которого хотите получить статистику."
	msgStatsResult   = "Токен `%s` был использован %d раз(а) уникальными пользователями."
	msgStatsNotFound = "Токен не найден."
	msgBulkPrompt    = "Пожалуйста, отправьте токены, которые хотите удалить, разделенные пробелом."
	msgBulkEmpty     = "Вы не указали ни одного токена."
	msgBulkDeleted   = "Успешно удалено токенов: %d"
	msgBulkNoneFound = "Ни один из указанных токенов не был найден."
	msgExportEmpty   = "За последние 24 часа не было загружено токенов."

	exportDocumentName = "tokens_last24h.txt"
)
