package errcodes

import "git.appkode.ru/pub/go/failure"

const (
	InternalServerError failure.ErrorCode = "InternalServerError"
	TimeoutExceeded     failure.ErrorCode = "TimeoutExceeded"
	ValidationError     failure.ErrorCode = "ValidationError"
	NotFound            failure.ErrorCode = "NotFound"
	Forbidden           failure.ErrorCode = "Forbidden"

	// Коды движка мониторинга сделок
	DealNotFound         failure.ErrorCode = "DealNotFound"         // Когда ID есть, но в трекинге нет
	InvalidDeal          failure.ErrorCode = "InvalidDeal"          // Цена <= 0, истёкший expiresAt и прочий мусор из фида
	DealExpired          failure.ErrorCode = "DealExpired"          // Сделка протухла до начала бронирования
	DealAlreadyTerminal  failure.ErrorCode = "DealAlreadyTerminal"  // Попытка двинуть сделку из терминального статуса
	InvalidBudgetProfile failure.ErrorCode = "InvalidBudgetProfile" // Бюджет/порог вне допустимых границ
	InsufficientFunds    failure.ErrorCode = "InsufficientFunds"    // Баланса не хватило в момент коммита
	ProviderRejected     failure.ErrorCode = "ProviderRejected"     // Внешний провайдер отказал
	BookingSuperseded    failure.ErrorCode = "BookingSuperseded"    // Попытка вытеснена изменением состояния
	BookingConflict      failure.ErrorCode = "BookingConflict"      // Вторая активная попытка по тому же dealId
	AttemptNotFound      failure.ErrorCode = "AttemptNotFound"
)
