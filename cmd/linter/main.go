// Command linter запускает анализатор exitcheck, запрещающий завершение
// процесса вне функции main.
package main

import "golang.org/x/tools/go/analysis/singlechecker"

func main() {
	singlechecker.Main(Analyzer)
}
