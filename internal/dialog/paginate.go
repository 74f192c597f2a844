package dialog

// Page результат пагинации: границы среза и соседние страницы
type Page struct {
	Start    int // индекс первого элемента страницы
	End      int // индекс за последним элементом
	Index    int // фактический номер страницы (после clamp)
	Prev     int // номер предыдущей страницы, с переносом на последнюю
	Next     int // номер следующей страницы, с переносом на нулевую
	OutRange bool // запрошенной страницы не существует
}

// Paginate режет список длины total на страницы по pageSize.
// Перелистывание закольцовано в обе стороны; несуществующая страница
// прижимается к нулевой с пометкой OutRange.
func Paginate(total, page, pageSize int) Page {
	if pageSize <= 0 {
		pageSize = 1
	}

	lastPage := 0
	if total > 0 {
		lastPage = (total - 1) / pageSize
	}

	out := false
	if page < 0 || page > lastPage {
		out = true
		page = 0
	}

	start := page * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	prev := page - 1
	if page == 0 {
		prev = lastPage
	}

	next := 0
	if (page+1)*pageSize < total {
		next = page + 1
	}

	return Page{
		Start:    start,
		End:      end,
		Index:    page,
		Prev:     prev,
		Next:     next,
		OutRange: out,
	}
}

// PaginateStrings удобный срез строковых элементов страницы
func PaginateStrings(items []string, page, pageSize int) ([]string, Page) {
	p := Paginate(len(items), page, pageSize)
	return items[p.Start:p.End], p
}
