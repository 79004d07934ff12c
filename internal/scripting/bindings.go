package scripting

import (
	"errors"
	"fmt"
	"os"

	"github.com/dop251/goja"

	"github.com/seqforge/taskkit/internal/cla"
	"github.com/seqforge/taskkit/internal/files"
)

func (r *Runtime) bind() error {
	for name, build := range map[string]func() (*goja.Object, error){
		"log":   r.logObject,
		"file":  r.fileObject,
		"tools": r.toolsObject,
		"fs":    r.fsObject,
	} {
		obj, err := build()
		if err != nil {
			return err
		}
		if err := r.vm.Set(name, obj); err != nil {
			return fmt.Errorf("bind %s: %w", name, err)
		}
	}
	return nil
}

func (r *Runtime) logObject() (*goja.Object, error) {
	obj := r.vm.NewObject()
	if err := obj.Set("info", func(call goja.FunctionCall) goja.Value {
		r.env.Log.Info(argString(call, 0))
		return goja.Undefined()
	}); err != nil {
		return nil, err
	}
	if err := obj.Set("warning", func(call goja.FunctionCall) goja.Value {
		r.env.Log.Warning(argString(call, 0))
		return goja.Undefined()
	}); err != nil {
		return nil, err
	}
	return obj, nil
}

func (r *Runtime) fileObject() (*goja.Object, error) {
	obj := r.vm.NewObject()
	needFile := func() *files.File {
		if r.env.File == nil {
			r.throw(errors.New("no file is bound to this task"))
		}
		return r.env.File
	}

	fns := map[string]func(goja.FunctionCall) goja.Value{
		"metainfo": func(call goja.FunctionCall) goja.Value {
			meta, err := needFile().Metainfo(r.ctx)
			if err != nil {
				r.throw(err)
			}
			out := make(map[string][]string, len(meta))
			for _, key := range meta.Keys() {
				var vals []string
				for _, v := range meta.List(key) {
					vals = append(vals, v.String())
				}
				out[key] = vals
			}
			return r.vm.ToValue(out)
		},
		"get": func(call goja.FunctionCall) goja.Value {
			units, err := needFile().Get(r.ctx, argString(call, 0), nil)
			if err != nil {
				r.throw(err)
			}
			out := make([]map[string]any, 0, len(units))
			for _, u := range units {
				out = append(out, map[string]any{"files": u.Files, "format": u.Format})
			}
			return r.vm.ToValue(out)
		},
		"put": func(call goja.FunctionCall) goja.Value {
			unit, err := files.NewStorageUnit(argStrings(call, 1)...)
			if err != nil {
				r.throw(err)
			}
			if err := needFile().Put(r.ctx, argString(call, 0), unit); err != nil {
				r.throw(err)
			}
			return goja.Undefined()
		},
		"download": func(call goja.FunctionCall) goja.Value {
			paths, err := needFile().Download(r.ctx, argString(call, 0), argString(call, 1), false, true)
			if err != nil {
				r.throw(err)
			}
			return r.vm.ToValue(paths)
		},
		"addWarning": func(call goja.FunctionCall) goja.Value {
			if err := needFile().AddWarning(r.ctx, argString(call, 0)); err != nil {
				r.throw(err)
			}
			return goja.Undefined()
		},
		"setProgress": func(call goja.FunctionCall) goja.Value {
			percent := -1
			if len(call.Arguments) > 1 {
				percent = int(call.Arguments[1].ToInteger())
			}
			if err := needFile().SetProgressStage(r.ctx, argString(call, 0), percent); err != nil {
				r.throw(err)
			}
			return goja.Undefined()
		},
		"sendIndex": func(call goja.FunctionCall) goja.Value {
			var records []map[string]any
			if len(call.Arguments) > 0 {
				if err := r.vm.ExportTo(call.Arguments[0], &records); err != nil {
					r.throw(fmt.Errorf("index records must be a list of objects: %w", err))
				}
			}
			if err := needFile().SendIndex(r.ctx, records); err != nil {
				r.throw(err)
			}
			return goja.Undefined()
		},
	}
	for name, fn := range fns {
		if err := obj.Set(name, fn); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func (r *Runtime) toolsObject() (*goja.Object, error) {
	obj := r.vm.NewObject()
	needTools := func() *cla.Context {
		if r.env.Tools == nil {
			r.throw(errors.New("no tool context is bound to this task"))
		}
		return r.env.Tools
	}

	if err := obj.Set("tool", func(call goja.FunctionCall) goja.Value {
		tool, err := needTools().Tool(argString(call, 0), argString(call, 1), argStrings(call, 2)...)
		if err != nil {
			r.throw(err)
		}
		return r.toolObject(tool)
	}); err != nil {
		return nil, err
	}
	if err := obj.Set("args", func(call goja.FunctionCall) goja.Value {
		return r.vm.ToValue(needTools().ArgumentList())
	}); err != nil {
		return nil, err
	}
	return obj, nil
}

// toolObject wraps a resolved tool for script use; resolution errors have
// already been raised by the time one exists.
func (r *Runtime) toolObject(tool *cla.Tool) goja.Value {
	obj := r.vm.NewObject()
	_ = obj.Set("path", func(call goja.FunctionCall) goja.Value {
		return r.vm.ToValue(tool.Path())
	})
	_ = obj.Set("version", func(call goja.FunctionCall) goja.Value {
		return r.vm.ToValue(tool.Version())
	})
	_ = obj.Set("run", func(call goja.FunctionCall) goja.Value {
		if err := tool.Command(argStrings(call, 0)...).Run(r.ctx, cla.RunOptions{}); err != nil {
			r.throw(err)
		}
		return goja.Undefined()
	})
	_ = obj.Set("runToFile", func(call goja.FunctionCall) goja.Value {
		opts := cla.RunOptions{StdoutPath: argString(call, 0)}
		if err := tool.Command(argStrings(call, 1)...).Run(r.ctx, opts); err != nil {
			r.throw(err)
		}
		return goja.Undefined()
	})
	_ = obj.Set("output", func(call goja.FunctionCall) goja.Value {
		out, err := tool.Command(argStrings(call, 0)...).Output(r.ctx)
		if err != nil {
			r.throw(err)
		}
		return r.vm.ToValue(out)
	})
	return obj
}

func (r *Runtime) fsObject() (*goja.Object, error) {
	obj := r.vm.NewObject()
	fns := map[string]func(goja.FunctionCall) goja.Value{
		"exists": func(call goja.FunctionCall) goja.Value {
			_, err := os.Stat(argString(call, 0))
			return r.vm.ToValue(err == nil)
		},
		"unique": func(call goja.FunctionCall) goja.Value {
			if r.env.WorkDir == nil {
				r.throw(errors.New("no working directory is bound to this task"))
			}
			name, err := r.env.WorkDir.UniqueName(argString(call, 0))
			if err != nil {
				r.throw(err)
			}
			return r.vm.ToValue(name)
		},
		"workdir": func(call goja.FunctionCall) goja.Value {
			if r.env.WorkDir == nil {
				r.throw(errors.New("no working directory is bound to this task"))
			}
			return r.vm.ToValue(r.env.WorkDir.Root())
		},
		"ensure": func(call goja.FunctionCall) goja.Value {
			if r.env.WorkDir == nil {
				r.throw(errors.New("no working directory is bound to this task"))
			}
			if err := r.env.WorkDir.EnsureArtifact(argString(call, 0)); err != nil {
				r.throw(err)
			}
			return goja.Undefined()
		},
	}
	for name, fn := range fns {
		if err := obj.Set(name, fn); err != nil {
			return nil, err
		}
	}
	return obj, nil
}
