package dialog

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Ограничения на вводимые значения
const (
	PriceMin          = 1
	PriceMax          = 10000
	IntervalStep      = 30
	IntervalMax       = 300
	ButtonLabelMaxLen = 30
)

// PricePair пара цен: без закрепа / с закрепом
type PricePair struct {
	WithoutPin int
	WithPin    int
}

// ParsePricePair разбирает строку "<int>/<int>", обе цены в [1, 10000]
func ParsePricePair(raw string) (PricePair, *ValidationError) {
	parts := strings.Split(strings.TrimSpace(raw), "/")
	if len(parts) != 2 {
		return PricePair{}, &ValidationError{Message: "❌ Неверный формат. Введите две цены через косую черту, например: 10/15"}
	}

	without, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return PricePair{}, &ValidationError{Message: "❌ Цена должна быть целым числом. Попробуйте ещё раз"}
	}
	with, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return PricePair{}, &ValidationError{Message: "❌ Цена должна быть целым числом. Попробуйте ещё раз"}
	}

	if without < PriceMin || without > PriceMax || with < PriceMin || with > PriceMax {
		return PricePair{}, &ValidationError{
			Message: fmt.Sprintf("❌ Цена должна быть от %d до %d. Попробуйте ещё раз", PriceMin, PriceMax),
		}
	}

	return PricePair{WithoutPin: without, WithPin: with}, nil
}

// Длительности размещения в прайс-листе, строго в этом порядке
var priceListDays = [4]int{1, 7, 14, 30}

// ParsePriceList разбирает прайс-лист из четырёх строк
// "<дней> - <без закрепа>/<с закрепом>" для 1, 7, 14 и 30 дней.
// Любое отклонение отвергает весь блок целиком.
func ParsePriceList(raw string) ([4]PricePair, *ValidationError) {
	parseErr := &ValidationError{Message: "Ошибка парсинга, попробуйте еще раз"}

	lines := strings.Split(strings.TrimSpace(raw), "\n")
	if len(lines) != 4 {
		return [4]PricePair{}, parseErr
	}

	var quad [4]PricePair
	for i, line := range lines {
		parts := strings.Split(line, " - ")
		if len(parts) != 2 {
			return [4]PricePair{}, parseErr
		}

		days, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || days != priceListDays[i] {
			return [4]PricePair{}, parseErr
		}

		pair, verr := ParsePricePair(parts[1])
		if verr != nil {
			return [4]PricePair{}, parseErr
		}
		quad[i] = pair
	}

	return quad, nil
}

// ParseWorkHours разбирает рабочие часы "<HH:MM>-<HH:MM>".
// Минуты принудительно :00; конец "24:00" нормализуется в "00:00";
// начало позже конца отвергается, кроме случая конца в полночь.
func ParseWorkHours(raw string) (start, end string, verr *ValidationError) {
	formatErr := &ValidationError{Message: "❌ Неверный формат. Введите рабочие часы, например: 08:00-22:00"}

	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 2 {
		return "", "", formatErr
	}

	startHour, ok := parseHour(parts[0])
	if !ok {
		return "", "", formatErr
	}
	endHour, ok := parseHour(parts[1])
	if !ok {
		return "", "", formatErr
	}

	if startHour > 23 {
		return "", "", formatErr
	}
	if endHour > 24 {
		return "", "", formatErr
	}

	// 24:00 — это полночь следующего дня
	endIsMidnight := endHour == 24 || endHour == 0
	if endIsMidnight {
		endHour = 0
	}

	if !endIsMidnight && startHour >= endHour {
		return "", "", &ValidationError{Message: "❌ Начало рабочих часов должно быть раньше конца. Попробуйте ещё раз"}
	}

	return fmt.Sprintf("%02d:00", startHour), fmt.Sprintf("%02d:00", endHour), nil
}

// parseHour принимает "8:00", "08:00", "8:30" и возвращает только час
func parseHour(raw string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, false
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 {
		return 0, false
	}
	if _, err := strconv.Atoi(parts[1]); err != nil {
		return 0, false
	}

	return hour, true
}

// ParseInterval разбирает интервал между постами в минутах:
// положительное кратное 30, не больше 300
func ParseInterval(raw string) (int, *ValidationError) {
	interval, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &ValidationError{Message: "❌ Интервал должен быть целым числом минут, например: 60"}
	}

	if interval <= 0 || interval%IntervalStep != 0 || interval > IntervalMax {
		return 0, &ValidationError{
			Message: fmt.Sprintf("❌ Интервал должен быть кратен %d минутам и не больше %d. Попробуйте ещё раз", IntervalStep, IntervalMax),
		}
	}

	return interval, nil
}

// ValidateButtonLabel проверяет текст кнопки
func ValidateButtonLabel(raw string) (string, *ValidationError) {
	label := strings.TrimSpace(raw)
	if label == "" {
		return "", &ValidationError{Message: "❌ Текст кнопки не может быть пустым"}
	}
	if len([]rune(label)) > ButtonLabelMaxLen {
		return "", &ValidationError{
			Message: fmt.Sprintf("❌ Текст кнопки не длиннее %d символов. Попробуйте ещё раз", ButtonLabelMaxLen),
		}
	}
	return label, nil
}

// NormalizeButtonURL нормализует адрес кнопки: "@x" превращается в
// "https://t.me/x", голый хост получает "https://", результат обязан
// разбираться как абсолютный URL со схемой и хостом
func NormalizeButtonURL(raw string) (string, *ValidationError) {
	badURL := &ValidationError{Message: "❌ Неверная ссылка. Отправьте ссылку или @username канала"}

	addr := strings.TrimSpace(raw)
	if addr == "" {
		return "", badURL
	}

	switch {
	case strings.HasPrefix(addr, "@"):
		addr = "https://t.me/" + strings.TrimPrefix(addr, "@")
	case !strings.Contains(addr, "://"):
		addr = "https://" + addr
	}

	parsed, err := url.Parse(addr)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", badURL
	}
	// Пробел в хосте url.Parse пропускает, а Telegram — нет
	if strings.ContainsAny(parsed.Host, " \t") {
		return "", badURL
	}

	return addr, nil
}

// ParsePostLink достаёт id сообщения из вставленной ссылки на пост:
// последний сегмент пути обязан быть целым числом
func ParsePostLink(raw string) (int64, *ValidationError) {
	badLink := &ValidationError{Message: "❌ Не удалось разобрать ссылку на пост. Попробуйте ещё раз"}

	addr := strings.TrimSpace(raw)
	addr = strings.TrimSuffix(addr, "/")

	idx := strings.LastIndex(addr, "/")
	if idx < 0 {
		return 0, badLink
	}

	messageID, err := strconv.ParseInt(addr[idx+1:], 10, 64)
	if err != nil || messageID <= 0 {
		return 0, badLink
	}

	return messageID, nil
}

// LooksLikePostLink грубая проверка, что текст — ссылка на пост
func LooksLikePostLink(text string) bool {
	text = strings.TrimSpace(strings.ToLower(text))
	return strings.HasPrefix(text, "https://t.me/") ||
		strings.HasPrefix(text, "http://t.me/") ||
		strings.HasPrefix(text, "t.me/")
}
