package target

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Info 进程概要信息
type Info struct {
	Pid     int      `yaml:"pid"`
	Name    string   `yaml:"name"`
	Path    string   `yaml:"path"`
	Cmdline []string `yaml:"cmdline"`
}

// readProcComm 读取/proc/pid/comm，为空时从/proc/pid/stat中解析
func (p *Process) readProcComm() (string, error) {
	comm, err := os.ReadFile(p.procPath("comm"))
	if err == nil {
		comm = bytes.TrimSuffix(comm, []byte("\n"))
	}

	if len(comm) == 0 {
		stat, err := os.ReadFile(p.procPath("stat"))
		if err != nil {
			return "", fmt.Errorf("could not read proc stat: %v", err)
		}
		expr := fmt.Sprintf("^%d\\s*\\((.*)\\)", p.pid)
		rexp, err := regexp.Compile(expr)
		if err != nil {
			return "", fmt.Errorf("regexp compile error: %v", err)
		}
		match := rexp.FindSubmatch(stat)
		if match == nil {
			return "", fmt.Errorf("no match found using regexp '%s' in %s", expr, p.procPath("stat"))
		}
		comm = match[1]
	}
	return string(comm), nil
}

// Name 进程名(comm)，读取失败返回空串
func (p *Process) Name() string {
	name, err := p.readProcComm()
	if err != nil {
		p.log.Debugf("read comm: %v", err)
		return ""
	}
	return name
}

// CommandLine 进程启动参数，读取失败返回nil
func (p *Process) CommandLine() []string {
	dat, err := os.ReadFile(p.procPath("cmdline"))
	if err != nil {
		p.log.Debugf("read cmdline: %v", err)
		return nil
	}
	return parseCmdline(dat)
}

// ImagePath 可执行文件路径，读取失败返回空串
func (p *Process) ImagePath() string {
	path, err := os.Readlink(p.procPath("exe"))
	if err != nil {
		p.log.Debugf("read exe: %v", err)
		return ""
	}
	return path
}

// Environment 进程环境变量，读取失败返回空map
func (p *Process) Environment() map[string]string {
	dat, err := os.ReadFile(p.procPath("environ"))
	if err != nil {
		p.log.Debugf("read environ: %v", err)
		return map[string]string{}
	}
	return parseEnviron(dat)
}

// Info 汇总进程概要信息
func (p *Process) Info() Info {
	return Info{
		Pid:     p.pid,
		Name:    p.Name(),
		Path:    p.ImagePath(),
		Cmdline: p.CommandLine(),
	}
}

// parseCmdline 按NUL切分，只去掉末尾的空字段
func parseCmdline(dat []byte) []string {
	args := strings.Split(string(dat), "\x00")
	for len(args) > 0 && args[len(args)-1] == "" {
		args = args[:len(args)-1]
	}
	return args
}

// parseEnviron 按NUL切分，每项在第一个'='处分成名字和值，没有'='的项忽略
func parseEnviron(dat []byte) map[string]string {
	env := map[string]string{}
	for _, item := range strings.Split(string(dat), "\x00") {
		name, value, ok := strings.Cut(item, "=")
		if !ok || name == "" {
			continue
		}
		env[name] = value
	}
	return env
}

// status 读取/proc/pid/stat中的进程状态，读取失败返回0
func (p *Process) status(tid int) rune {
	stat, err := os.ReadFile(fmt.Sprintf("%s/%d/stat", p.root, tid))
	if err != nil {
		return 0
	}
	// comm may contain spaces and parentheses, the state follows the last ')'
	i := bytes.LastIndexByte(stat, ')')
	if i < 0 || i+2 >= len(stat) {
		return 0
	}
	return rune(stat[i+2])
}

// Process statuses
const (
	statusZombie = 'Z'
	statusDead   = 'X'
)
