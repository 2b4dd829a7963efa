package iocli

//go:generate moq -out io_mock.go . IO

// IO — терминальный ввод-вывод команд клиента. Интерфейс позволяет
// тестам подставлять заскриптованные ответы вместо stdin. Write нужен
// шаблонному рендерингу списков и деталей.
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	Write(p []byte) (n int, err error)
	// Interactive сообщает, подключен ли ввод к терминалу:
	// без терминала команды не могут задавать вопросы.
	Interactive() bool
}
