package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Keranthos/softeng-platform/internal/cli"
	"github.com/Keranthos/softeng-platform/internal/localizer"
)

// commonSites is the frontend's "常用" list.
var commonSites = []localizer.Site{
	{Name: "微信文件", URL: "https://file.fengfengzhidao.com", Icon: "https://file.fengfengzhidao.com/logo/wechat.png", Desc: "快速传输文件到设备"},
	{Name: "和风天气", URL: "https://www.qweather.com", Icon: "https://cdn.heweather.com/img/logo.png", Desc: "实时天气预报服务"},
	{Name: "小红书", URL: "https://www.xiaohongshu.com", Icon: "https://ci.xiaohongshu.com/logo_2023.png", Desc: "生活方式分享社区"},
	{Name: "哔哩哔哩", URL: "https://www.bilibili.com", Icon: "https://www.bilibili.com/favicon.ico", Desc: "视频弹幕网站"},
	{Name: "知乎", URL: "https://www.zhihu.com", Icon: "https://static.zhihu.com/static/favicon.ico", Desc: "高质量问答平台"},
	{Name: "百度翻译", URL: "https://fanyi.baidu.com", Icon: "https://fanyi.bdstatic.com/static/translation/img/favicon.ico", Desc: "多语言翻译工具"},
	{Name: "淘宝", URL: "https://www.taobao.com", Icon: "https://www.taobao.com/favicon.ico", Desc: "在线购物平台"},
	{Name: "抖音", URL: "https://www.douyin.com", Icon: "https://lf1-cdn2-tos.bytego.com/obj/ies-fe-bee-prod/cn/fe/bee_prod_cn_bee_home_page_logo.png", Desc: "短视频分享应用"},
	{Name: "京东", URL: "https://www.jd.com", Icon: "https://www.jd.com/favicon.ico", Desc: "电商购物网站"},
	{Name: "微博", URL: "https://www.weibo.com", Icon: "https://weibo.com/favicon.ico", Desc: "社交媒体平台"},
}

func main() {
	cfg, err := cli.Init("migrate-common-sites")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	l := localizer.NewSiteLocalizer(cfg, localizer.NewDownloader(cfg))
	slog.Info("localizing common site icons", "sites", len(commonSites), "dir", l.Dir())

	results := l.LocalizeSites(ctx, commonSites)

	succeeded, reused := 0, 0
	for _, r := range results {
		if r.Localized {
			succeeded++
		}
		if r.Reused {
			reused++
		}
	}

	line := strings.Repeat("=", 60)
	fmt.Println(line)
	fmt.Printf("Localized: %d/%d (%d already stored)\n", succeeded, len(results), reused)
	fmt.Printf("Failed: %d/%d\n", len(results)-succeeded, len(results))
	fmt.Println(line)
	fmt.Println("Updated commonSites (paste into the frontend store):")
	localizer.WriteSites(os.Stdout, results)

	if err := ctx.Err(); err != nil {
		cli.Fatal("interrupted", err)
	}
}
