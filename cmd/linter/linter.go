package main

import (
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
)

const zapPath = "go.uber.org/zap"

var Analyzer = &analysis.Analyzer{
	Name: "exitcheck",
	Doc:  "проверяет использование panic, os.Exit, log.Fatal и Fatal-методов zap вне main пакета main",
	Run:  run,
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			if ident, ok := call.Fun.(*ast.Ident); ok {
				if _, builtin := pass.TypesInfo.Uses[ident].(*types.Builtin); builtin && ident.Name == "panic" {
					pass.Reportf(call.Pos(), "использование встроенной функции panic")
				}
				return true
			}

			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok {
				return true
			}

			name, ok := exitCall(pass, sel)
			if ok && !isInMainFunc(pass, call) {
				pass.Reportf(call.Pos(), "вызов %s.%s вне функции main пакета main", name, sel.Sel.Name)
			}
			return true
		})
	}

	return nil, nil
}

// exitCall возвращает имя пакета или типа, если sel завершает процесс.
func exitCall(pass *analysis.Pass, sel *ast.SelectorExpr) (string, bool) {
	funcName := sel.Sel.Name

	if x, ok := sel.X.(*ast.Ident); ok {
		if pkg, ok := pass.TypesInfo.Uses[x].(*types.PkgName); ok {
			switch path := pkg.Imported().Path(); {
			case path == "os" && funcName == "Exit":
				return "os", true
			case path == "log" && isFatalFunc(funcName):
				return "log", true
			}
			return "", false
		}
	}

	// Методы *zap.Logger и *zap.SugaredLogger.
	selection, ok := pass.TypesInfo.Selections[sel]
	if !ok || selection.Kind() != types.MethodVal || !isZapFatal(funcName) {
		return "", false
	}
	recv := selection.Recv()
	if ptr, ok := recv.(*types.Pointer); ok {
		recv = ptr.Elem()
	}
	named, ok := recv.(*types.Named)
	if !ok || named.Obj().Pkg() == nil || named.Obj().Pkg().Path() != zapPath {
		return "", false
	}
	return "zap." + named.Obj().Name(), true
}

func isFatalFunc(name string) bool {
	return name == "Fatal" || name == "Fatalf" || name == "Fatalln"
}

func isZapFatal(name string) bool {
	return isFatalFunc(name) || name == "Fatalw"
}

// isInMainFunc проверяет, находится ли вызов внутри функции main пакета main
func isInMainFunc(pass *analysis.Pass, call *ast.CallExpr) bool {
	if pass.Pkg.Name() != "main" {
		return false
	}

	for _, file := range pass.Files {
		for _, decl := range file.Decls {
			funcDecl, ok := decl.(*ast.FuncDecl)
			if !ok || funcDecl.Name.Name != "main" || funcDecl.Recv != nil {
				continue
			}
			if funcDecl.Pos() <= call.Pos() && call.End() <= funcDecl.End() {
				return true
			}
		}
	}

	return false
}
