package domain

import "errors"

// ErrNotFound возвращается, когда запись отсутствует в хранилище.
var ErrNotFound = errors.New("запись не найдена")

// ErrDailyLimit возвращается при превышении дневного лимита цитат.
var ErrDailyLimit = errors.New("дневной лимит цитат исчерпан")

// ErrUserBlockedBot отличает блокировку бота получателем от прочих
// ошибок доставки: планировщик обязан отключить напоминания.
var ErrUserBlockedBot = errors.New("получатель заблокировал бота")

// ErrEmptyQuote возвращается на пустой ввод до каких-либо побочных эффектов.
var ErrEmptyQuote = errors.New("пустой текст цитаты")
